package elo

import (
	"fmt"
	"math"

	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/internal/storage"
	"github.com/jstittsworth/gridline/pkg/config"
	"github.com/sirupsen/logrus"
)

// Calculator applies one completed game to the team (and, for MLB, pitcher)
// ratings. Apply is idempotent: replaying a game that already has rating history
// is a skip, not a double update.
type Calculator struct {
	profile config.SportProfile
	ratings *storage.RatingStore
	games   *storage.GameStore
	logger  *logrus.Logger
}

// Result reports the outcome of applying one game.
type Result struct {
	HomeChange float64 `json:"home_change"`
	AwayChange float64 `json:"away_change"`
	HomeRating float64 `json:"home_rating"`
	AwayRating float64 `json:"away_rating"`
	Skipped    bool    `json:"skipped"`
	Reason     string  `json:"reason,omitempty"`
}

func NewCalculator(profile config.SportProfile, ratings *storage.RatingStore, games *storage.GameStore, logger *logrus.Logger) (*Calculator, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("elo calculator: %w", err)
	}
	return &Calculator{
		profile: profile,
		ratings: ratings,
		games:   games,
		logger:  logger,
	}, nil
}

// Apply updates both teams' ratings from a final game. Missing data or a non-final
// status produces a zero-change skip result rather than an error so batch re-runs
// over partially synced seasons keep going.
func (c *Calculator) Apply(game *models.Game) (*Result, error) {
	if game == nil {
		return &Result{Skipped: true, Reason: "game not found"}, nil
	}
	if !game.IsFinal() {
		return &Result{Skipped: true, Reason: "game not final"}, nil
	}
	if !game.HasScores() {
		return &Result{Skipped: true, Reason: "scores not synced"}, nil
	}
	if game.HomeTeamID == 0 || game.AwayTeamID == 0 {
		return &Result{Skipped: true, Reason: "team not resolved"}, nil
	}
	for _, teamID := range []uint{game.HomeTeamID, game.AwayTeamID} {
		exists, err := c.games.TeamExists(teamID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return &Result{Skipped: true, Reason: "team not resolved"}, nil
		}
	}

	// Replay guard: one history row per team per game
	homeApplied, err := c.ratings.HistoryExists(game.HomeTeamID, game.ID)
	if err != nil {
		return nil, err
	}
	awayApplied, err := c.ratings.HistoryExists(game.AwayTeamID, game.ID)
	if err != nil {
		return nil, err
	}
	if homeApplied || awayApplied {
		return &Result{Skipped: true, Reason: "already applied"}, nil
	}

	homeRating, err := c.ratings.RatingOrDefault(game.HomeTeamID, c.profile.DefaultRating)
	if err != nil {
		return nil, err
	}
	awayRating, err := c.ratings.RatingOrDefault(game.AwayTeamID, c.profile.DefaultRating)
	if err != nil {
		return nil, err
	}

	margin := math.Abs(float64(*game.HomeScore - *game.AwayScore))
	homeWon := *game.HomeScore > *game.AwayScore

	// Home rating carries the venue boost for expectation purposes only; the
	// stored rating is venue-neutral.
	homeEffective := homeRating + c.profile.HomeAdvantage
	expectedHome := expectedScore(homeEffective, awayRating)
	expectedAway := 1 - expectedHome

	actualHome, actualAway := 0.0, 1.0
	if homeWon {
		actualHome, actualAway = 1.0, 0.0
	}

	k := c.kFactor(game, margin, homeEffective, awayRating)

	// Each side is computed from its own expectation rather than negating the
	// other side's change.
	homeChange := roundTo(k*(actualHome-expectedHome), 1)
	awayChange := roundTo(k*(actualAway-expectedAway), 1)

	newHome := math.Round(homeRating + homeChange)
	newAway := math.Round(awayRating + awayChange)

	if err := c.ratings.SaveTeamRating(game.HomeTeamID, game.Sport, newHome); err != nil {
		return nil, err
	}
	if err := c.ratings.SaveTeamRating(game.AwayTeamID, game.Sport, newAway); err != nil {
		return nil, err
	}

	homeEntry := &models.RatingHistoryEntry{
		TeamID:       game.HomeTeamID,
		GameID:       game.ID,
		Season:       game.Season,
		GameDate:     game.GameDate,
		RatingAfter:  newHome,
		RatingChange: homeChange,
	}
	if err := c.ratings.AppendHistory(homeEntry); err != nil {
		return nil, err
	}
	awayEntry := &models.RatingHistoryEntry{
		TeamID:       game.AwayTeamID,
		GameID:       game.ID,
		Season:       game.Season,
		GameDate:     game.GameDate,
		RatingAfter:  newAway,
		RatingChange: awayChange,
	}
	if err := c.ratings.AppendHistory(awayEntry); err != nil {
		return nil, err
	}

	if c.profile.PitcherRatings {
		if err := c.applyPitchers(game, margin, homeWon); err != nil {
			return nil, err
		}
	}

	c.logger.WithFields(logrus.Fields{
		"game_id":     game.ID,
		"home_change": homeChange,
		"away_change": awayChange,
	}).Debug("Applied elo update")

	return &Result{
		HomeChange: homeChange,
		AwayChange: awayChange,
		HomeRating: newHome,
		AwayRating: newAway,
	}, nil
}

// applyPitchers runs the reduced-K rating update for MLB probable starters. Games
// without both starters attached are silently skipped.
func (c *Calculator) applyPitchers(game *models.Game, margin float64, homeWon bool) error {
	if game.HomePitcherID == nil || game.AwayPitcherID == nil {
		return nil
	}

	applied, err := c.ratings.PitcherHistoryExists(*game.HomePitcherID, game.ID)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	home, err := c.ratings.PitcherRatingOrDefault(*game.HomePitcherID, c.profile.PitcherDefaultRating)
	if err != nil {
		return err
	}
	away, err := c.ratings.PitcherRatingOrDefault(*game.AwayPitcherID, c.profile.PitcherDefaultRating)
	if err != nil {
		return err
	}

	expectedHome := expectedScore(home, away)
	actualHome, actualAway := 0.0, 1.0
	if homeWon {
		actualHome, actualAway = 1.0, 0.0
	}

	k := c.profile.PitcherKFactor * c.marginMultiplier(margin)
	if game.IsPlayoff() {
		k *= c.profile.PlayoffMultiplier
	}

	homeChange := roundTo(k*(actualHome-expectedHome), 1)
	awayChange := roundTo(k*(actualAway-(1-expectedHome)), 1)
	newHome := math.Round(home + homeChange)
	newAway := math.Round(away + awayChange)

	if err := c.ratings.SavePitcherRating(*game.HomePitcherID, newHome); err != nil {
		return err
	}
	if err := c.ratings.SavePitcherRating(*game.AwayPitcherID, newAway); err != nil {
		return err
	}
	if err := c.ratings.AppendPitcherHistory(*game.HomePitcherID, game.ID, game.Season, game.GameDate, newHome, homeChange); err != nil {
		return err
	}
	if err := c.ratings.AppendPitcherHistory(*game.AwayPitcherID, game.ID, game.Season, game.GameDate, newAway, awayChange); err != nil {
		return err
	}
	return nil
}

// kFactor scales the base K by margin, playoff, early-season volatility, and the
// optional mismatch dampener.
func (c *Calculator) kFactor(game *models.Game, margin, homeEffective, awayRating float64) float64 {
	k := c.profile.BaseKFactor * c.marginMultiplier(margin)

	if game.IsPlayoff() {
		k *= c.profile.PlayoffMultiplier
	} else if c.profile.RecencyWeeks > 0 && c.profile.RecencyMultiplier > 0 &&
		game.Week != nil && *game.Week <= c.profile.RecencyWeeks {
		k *= c.profile.RecencyMultiplier
	}

	if c.profile.SOSDivisor > 0 {
		gap := math.Abs(homeEffective - awayRating)
		dampener := math.Max(c.profile.SOSFloor, 1-gap/c.profile.SOSDivisor)
		k *= dampener
	}

	return k
}

// marginMultiplier applies whichever margin-of-victory form the sport configures:
// the tier table, or the capped logarithmic form.
func (c *Calculator) marginMultiplier(margin float64) float64 {
	if len(c.profile.MarginTiers) > 0 {
		for _, tier := range c.profile.MarginTiers {
			if tier.MaxMargin == nil || margin <= *tier.MaxMargin {
				return tier.Multiplier
			}
		}
		// Tier tables are expected to end in an unbounded tier; fall back to the
		// last one if not.
		return c.profile.MarginTiers[len(c.profile.MarginTiers)-1].Multiplier
	}
	return math.Min(c.profile.MaxMOVMultiplier, 1+math.Log(margin+1)*c.profile.MOVCoefficient)
}

// expectedScore is the standard Elo expectation for A against B.
func expectedScore(ratingA, ratingB float64) float64 {
	return 1 / (1 + math.Pow(10, (ratingB-ratingA)/400))
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
