package live

import (
	"fmt"
	"math"
	"time"

	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/internal/storage"
	"github.com/jstittsworth/gridline/pkg/config"
	"github.com/sirupsen/logrus"
)

// Updater derives live forecasts from the stored pre-game prediction and the
// game's current score/clock state. Calls are at-least-once safe: each one simply
// overwrites the live fields with freshly derived values.
type Updater struct {
	profile     config.SportProfile
	predictions *storage.PredictionStore
	logger      *logrus.Logger
	now         func() time.Time
}

func NewUpdater(profile config.SportProfile, predictions *storage.PredictionStore, logger *logrus.Logger) (*Updater, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("live updater: %w", err)
	}
	return &Updater{
		profile:     profile,
		predictions: predictions,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Update recomputes live fields for an in-progress game, clears stale live fields
// on a game that slipped out of the in-progress state, and leaves final games
// alone for the grader. Missing data is a quiet no-op, never an error into the
// caller.
func (u *Updater) Update(game *models.Game) (*models.Prediction, error) {
	if game == nil {
		return nil, nil
	}

	prediction, err := u.predictions.GetByGameID(game.ID)
	if err != nil {
		return nil, err
	}
	if prediction == nil {
		return nil, nil
	}

	inProgress := u.profile.Live.IsInProgress(game.Status) && game.Period >= 1

	if !inProgress {
		// Self-heal: a non-in-progress, non-final game with live data means
		// polling missed a transition. Final games keep their last live values
		// for historical display.
		if !game.IsFinal() && prediction.HasLiveData() {
			if err := u.predictions.ClearLive(game.ID); err != nil {
				return nil, err
			}
			u.logger.WithField("game_id", game.ID).Debug("Cleared stale live prediction")
		}
		return nil, nil
	}

	if !game.HasScores() {
		return nil, nil
	}

	clock, err := computeClock(u.profile.Live, game.Period, game.GameClock)
	if err != nil {
		u.logger.WithField("game_id", game.ID).WithError(err).Debug("Skipping live update")
		return nil, nil
	}

	margin := float64(*game.HomeScore - *game.AwayScore)
	currentTotal := float64(*game.HomeScore + *game.AwayScore)
	f := clock.ElapsedFraction

	liveSpread := u.liveSpread(prediction.PredictedSpread, margin, f)
	liveWinProb := u.liveWinProbability(prediction.WinProbability, margin, f)
	liveTotal := u.liveTotal(prediction.PredictedTotal, currentTotal, clock)

	updatedAt := u.now().UTC()
	if err := u.predictions.SaveLive(game.ID, liveSpread, liveWinProb, liveTotal, clock.SecondsRemaining, updatedAt); err != nil {
		return nil, err
	}

	prediction.LivePredictedSpread = &liveSpread
	prediction.LiveWinProbability = &liveWinProb
	prediction.LivePredictedTotal = &liveTotal
	prediction.LiveSecondsRemaining = &clock.SecondsRemaining
	prediction.LiveUpdatedAt = &updatedAt
	return prediction, nil
}

// liveSpread blends the decaying pre-game spread with the actual margin, then
// regresses toward the margin with weight f^2 so the forecast lands exactly on the
// observed margin at the end of the game.
func (u *Updater) liveSpread(preSpread, margin, f float64) float64 {
	blended := f*margin + (1-f)*preSpread
	spread := blended + f*f*(margin-blended)
	return roundTo(spread, 2)
}

// liveWinProbability works in log-odds space: the pre-game signal decays as
// 1-sqrt(f) while the margin term's per-point weight ramps quadratically, so early
// leads move the needle a little and late leads almost entirely decide it.
func (u *Updater) liveWinProbability(preProb, margin, f float64) float64 {
	p := clampProb(preProb)
	preLogOdds := math.Log(p / (1 - p))

	coefficient := u.profile.SpreadToProbabilityCoefficient
	marginLogOdds := (margin / coefficient) * (0.5 + 2.5*f*f)

	combined := preLogOdds*(1-math.Sqrt(f)) + marginLogOdds
	return roundTo(clampProb(1/(1+math.Exp(-combined))), 4)
}

// liveTotal blends pace extrapolation with the pre-game total's not-yet-elapsed
// share, with the pace weight ramping as f^0.7. The result can never fall below
// the points already on the board.
func (u *Updater) liveTotal(preTotal, currentTotal float64, clock *ClockState) float64 {
	f := clock.ElapsedFraction

	pace := currentTotal
	if clock.SecondsElapsed > 0 {
		pace = currentTotal / float64(clock.SecondsElapsed) * float64(clock.EffectiveLength)
	}

	remainingShare := preTotal * float64(clock.SecondsRemaining) / float64(clock.EffectiveLength)
	if clock.SecondsRemaining <= 0 {
		remainingShare = 0
	}

	w := math.Pow(f, 0.7)
	projected := w*pace + (1-w)*(currentTotal+remainingShare)

	upper := preTotal*u.profile.Live.MaxTotalFactor + float64(clock.OvertimePeriods)*u.profile.Live.OvertimeTotalBump
	if projected > upper {
		projected = upper
	}
	if projected < currentTotal {
		projected = currentTotal
	}
	return roundTo(projected, 2)
}

func clampProb(p float64) float64 {
	const eps = 0.001
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
