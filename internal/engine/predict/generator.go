package predict

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/internal/storage"
	"github.com/jstittsworth/gridline/pkg/config"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Generator produces pre-game forecasts. Generate is a deterministic upsert keyed
// by game id: unchanged inputs produce an identical prediction.
type Generator struct {
	profile     config.SportProfile
	ratings     *storage.RatingStore
	metrics     *storage.MetricStore
	games       *storage.GameStore
	predictions *storage.PredictionStore
	logger      *logrus.Logger
	spread      SpreadStrategy
	total       TotalStrategy
}

func NewGenerator(
	profile config.SportProfile,
	ratings *storage.RatingStore,
	metrics *storage.MetricStore,
	games *storage.GameStore,
	predictions *storage.PredictionStore,
	logger *logrus.Logger,
) (*Generator, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("prediction generator: %w", err)
	}
	return &Generator{
		profile:     profile,
		ratings:     ratings,
		metrics:     metrics,
		games:       games,
		predictions: predictions,
		logger:      logger,
		spread:      spreadStrategyFor(profile),
		total:       totalStrategyFor(profile),
	}, nil
}

// Generate builds and upserts the forecast for one game. Settled games and games
// with unresolved teams return nil without error; forecasting them is meaningless,
// not exceptional.
func (g *Generator) Generate(game *models.Game) (*models.Prediction, error) {
	if game == nil || game.IsFinal() {
		return nil, nil
	}
	if game.HomeTeamID == 0 || game.AwayTeamID == 0 {
		return nil, nil
	}

	ctx, err := g.buildContext(game)
	if err != nil {
		return nil, err
	}

	modelSpread, components := g.spread(ctx)
	modelTotal := g.total(ctx)

	spread := modelSpread
	if market := marketSpread(game.Odds, g.profile.SpreadToProbabilityCoefficient); market != nil && g.profile.Weights.Market > 0 {
		wm := g.profile.Weights.Market
		spread = (1-wm)*modelSpread + wm**market
		components["market"] = *market
	}

	total := modelTotal
	if market := marketTotal(game.Odds); market != nil && g.profile.Weights.Market > 0 {
		wm := g.profile.Weights.Market
		total = (1-wm)*modelTotal + wm**market
	}

	winProb := SpreadToProbability(spread, g.profile.SpreadToProbabilityCoefficient)
	confidence := roundTo(math.Max(winProb, 1-winProb)*100, 2)

	componentsJSON, err := json.Marshal(components)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction components: %w", err)
	}

	prediction := &models.Prediction{
		GameID:          game.ID,
		Sport:           game.Sport,
		Season:          game.Season,
		HomeElo:         ctx.HomeElo,
		AwayElo:         ctx.AwayElo,
		PredictedSpread: roundTo(spread, 2),
		PredictedTotal:  roundTo(total, 2),
		WinProbability:  roundTo(winProb, 4),
		ConfidenceScore: confidence,
		Components:      datatypes.JSON(componentsJSON),
	}

	if err := g.predictions.Upsert(prediction); err != nil {
		return nil, err
	}

	g.logger.WithFields(logrus.Fields{
		"game_id": game.ID,
		"spread":  prediction.PredictedSpread,
		"total":   prediction.PredictedTotal,
	}).Debug("Generated prediction")

	return prediction, nil
}

// buildContext resolves every strategy input up front, applying the per-field
// defaulting policy for teams with no rating or metrics history.
func (g *Generator) buildContext(game *models.Game) (SpreadContext, error) {
	ctx := SpreadContext{Profile: g.profile}

	var err error
	ctx.HomeElo, err = g.ratings.RatingOrDefault(game.HomeTeamID, g.profile.DefaultRating)
	if err != nil {
		return ctx, err
	}
	ctx.AwayElo, err = g.ratings.RatingOrDefault(game.AwayTeamID, g.profile.DefaultRating)
	if err != nil {
		return ctx, err
	}

	homeMetric, err := g.metrics.GetMetric(game.HomeTeamID, game.Season)
	if err != nil {
		return ctx, err
	}
	awayMetric, err := g.metrics.GetMetric(game.AwayTeamID, game.Season)
	if err != nil {
		return ctx, err
	}
	ctx.HomeMetrics = resolveMetric(homeMetric, g.profile)
	ctx.AwayMetrics = resolveMetric(awayMetric, g.profile)

	if g.profile.SpreadStrategy == config.SpreadStrategyEfficiencyBlend {
		ctx.HomeForm, err = recentForm(g.games, g.profile, game.HomeTeamID, game.Season)
		if err != nil {
			return ctx, err
		}
		ctx.AwayForm, err = recentForm(g.games, g.profile, game.AwayTeamID, game.Season)
		if err != nil {
			return ctx, err
		}
		ctx.HomeRest, err = restDays(g.games, game.HomeTeamID, game.GameDate)
		if err != nil {
			return ctx, err
		}
		ctx.AwayRest, err = restDays(g.games, game.AwayTeamID, game.GameDate)
		if err != nil {
			return ctx, err
		}
	}

	if g.profile.PitcherRatings {
		if game.HomePitcherID != nil {
			ctx.HomePitcherElo, err = g.ratings.PitcherRatingOrDefault(*game.HomePitcherID, g.profile.PitcherDefaultRating)
			if err != nil {
				return ctx, err
			}
		} else {
			ctx.HomePitcherElo = g.profile.PitcherDefaultRating
		}
		if game.AwayPitcherID != nil {
			ctx.AwayPitcherElo, err = g.ratings.PitcherRatingOrDefault(*game.AwayPitcherID, g.profile.PitcherDefaultRating)
			if err != nil {
				return ctx, err
			}
		} else {
			ctx.AwayPitcherElo = g.profile.PitcherDefaultRating
		}
	}

	return ctx, nil
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
