package services

import (
	"fmt"
	"time"

	"github.com/jstittsworth/gridline/internal/engine/adjust"
	"github.com/jstittsworth/gridline/internal/engine/elo"
	"github.com/jstittsworth/gridline/internal/engine/grade"
	"github.com/jstittsworth/gridline/internal/engine/live"
	"github.com/jstittsworth/gridline/internal/engine/predict"
	"github.com/jstittsworth/gridline/internal/storage"
	"github.com/jstittsworth/gridline/pkg/config"
	"github.com/jstittsworth/gridline/pkg/database"
	"github.com/sirupsen/logrus"
)

// SportEngine bundles one sport's engine components over shared stores. The
// profile is validated once here; construction fails fast on a bad constant set.
type SportEngine struct {
	Profile     config.SportProfile
	Ratings     *storage.RatingStore
	Metrics     *storage.MetricStore
	Games       *storage.GameStore
	Predictions *storage.PredictionStore
	Elo         *elo.Calculator
	Adjuster    *adjust.Calculator
	Generator   *predict.Generator
	Live        *live.Updater
	Grader      *grade.Grader
}

func NewSportEngine(profile config.SportProfile, db *database.DB, logger *logrus.Logger) (*SportEngine, error) {
	ratings := storage.NewRatingStore(db)
	metrics := storage.NewMetricStore(db)
	games := storage.NewGameStore(db)
	predictions := storage.NewPredictionStore(db)

	eloCalc, err := elo.NewCalculator(profile, ratings, games, logger)
	if err != nil {
		return nil, fmt.Errorf("engine for %s: %w", profile.Sport, err)
	}
	adjuster, err := adjust.NewCalculator(profile, metrics, games, logger)
	if err != nil {
		return nil, fmt.Errorf("engine for %s: %w", profile.Sport, err)
	}
	generator, err := predict.NewGenerator(profile, ratings, metrics, games, predictions, logger)
	if err != nil {
		return nil, fmt.Errorf("engine for %s: %w", profile.Sport, err)
	}
	updater, err := live.NewUpdater(profile, predictions, logger)
	if err != nil {
		return nil, fmt.Errorf("engine for %s: %w", profile.Sport, err)
	}

	return &SportEngine{
		Profile:     profile,
		Ratings:     ratings,
		Metrics:     metrics,
		Games:       games,
		Predictions: predictions,
		Elo:         eloCalc,
		Adjuster:    adjuster,
		Generator:   generator,
		Live:        updater,
		Grader:      grade.NewGrader(predictions, games, logger),
	}, nil
}

// CurrentSeason labels the season a date belongs to. Winter sports spill into the
// next calendar year, so their label is the starting year.
func CurrentSeason(sport string, t time.Time) string {
	year := t.Year()
	switch sport {
	case "nba", "ncaab", "nfl":
		if t.Month() < time.August {
			year--
		}
	}
	return fmt.Sprintf("%d", year)
}
