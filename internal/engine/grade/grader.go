package grade

import (
	"math"
	"time"

	"github.com/jstittsworth/gridline/internal/storage"
	"github.com/sirupsen/logrus"
)

// Grader settles predictions against final scores. Grading is at-most-once: the
// store's graded_at guard means a re-run changes nothing for rows already graded.
type Grader struct {
	predictions *storage.PredictionStore
	games       *storage.GameStore
	logger      *logrus.Logger
	now         func() time.Time
}

// Summary aggregates one grading run. Computed over the rows graded in this run,
// returned to the caller and never persisted.
type Summary struct {
	Graded          int     `json:"graded"`
	Skipped         int     `json:"skipped"`
	WinnerAccuracy  float64 `json:"winner_accuracy"`
	MeanSpreadError float64 `json:"mean_spread_error"`
	MeanTotalError  float64 `json:"mean_total_error"`
}

func NewGrader(predictions *storage.PredictionStore, games *storage.GameStore, logger *logrus.Logger) *Grader {
	return &Grader{
		predictions: predictions,
		games:       games,
		logger:      logger,
		now:         time.Now,
	}
}

// Grade settles every ungraded prediction whose game is final with scores.
// Season may be empty to grade across seasons. Bad rows are counted as skips, not
// failures.
func (g *Grader) Grade(sport, season string) (*Summary, error) {
	predictions, err := g.predictions.ListUngraded(sport, season)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	var winnerHits int
	var spreadErrSum, totalErrSum float64

	for i := range predictions {
		p := &predictions[i]

		game, err := g.games.GetGame(p.GameID)
		if err != nil {
			return nil, err
		}
		if game == nil || !game.IsFinal() || !game.HasScores() {
			summary.Skipped++
			continue
		}

		actualSpread := float64(*game.HomeScore - *game.AwayScore)
		actualTotal := float64(*game.HomeScore + *game.AwayScore)
		spreadError := math.Abs(actualSpread - p.PredictedSpread)
		totalError := math.Abs(actualTotal - p.PredictedTotal)

		// Strict sign match: a push (zero margin) is not a correct pick for
		// either side.
		winnerCorrect := sign(actualSpread) != 0 && sign(actualSpread) == sign(p.PredictedSpread)

		graded, err := g.predictions.SaveGrading(p.ID, actualSpread, actualTotal, spreadError, totalError, winnerCorrect, g.now().UTC())
		if err != nil {
			return nil, err
		}
		if !graded {
			// Lost the race to a concurrent grader; the row was settled once
			// either way.
			summary.Skipped++
			continue
		}

		summary.Graded++
		if winnerCorrect {
			winnerHits++
		}
		spreadErrSum += spreadError
		totalErrSum += totalError
	}

	if summary.Graded > 0 {
		summary.WinnerAccuracy = float64(winnerHits) / float64(summary.Graded) * 100
		summary.MeanSpreadError = spreadErrSum / float64(summary.Graded)
		summary.MeanTotalError = totalErrSum / float64(summary.Graded)
	}

	g.logger.WithFields(logrus.Fields{
		"sport":   sport,
		"season":  season,
		"graded":  summary.Graded,
		"skipped": summary.Skipped,
	}).Info("Grading run completed")

	return summary, nil
}

// Accuracy recomputes the aggregate stats over all graded predictions, for the
// read API's model accuracy endpoint.
func (g *Grader) Accuracy(sport, season string) (*Summary, error) {
	predictions, err := g.predictions.ListGraded(sport, season)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Graded: len(predictions)}
	if len(predictions) == 0 {
		return summary, nil
	}

	var winnerHits int
	var spreadErrSum, totalErrSum float64
	for i := range predictions {
		p := &predictions[i]
		if p.WinnerCorrect != nil && *p.WinnerCorrect {
			winnerHits++
		}
		if p.SpreadError != nil {
			spreadErrSum += *p.SpreadError
		}
		if p.TotalError != nil {
			totalErrSum += *p.TotalError
		}
	}

	summary.WinnerAccuracy = float64(winnerHits) / float64(len(predictions)) * 100
	summary.MeanSpreadError = spreadErrSum / float64(len(predictions))
	summary.MeanTotalError = totalErrSum / float64(len(predictions))
	return summary, nil
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
