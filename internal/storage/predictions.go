package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/pkg/database"
	"gorm.io/gorm"
)

// PredictionStore reads and writes prediction rows. Pre-game fields go through
// Upsert (one row per game), live fields through SaveLive/ClearLive, grading fields
// through SaveGrading which is guarded to fire at most once.
type PredictionStore struct {
	db *database.DB
}

func NewPredictionStore(db *database.DB) *PredictionStore {
	return &PredictionStore{db: db}
}

// GetByGameID returns the prediction for a game, or nil when none exists.
func (s *PredictionStore) GetByGameID(gameID uint) (*models.Prediction, error) {
	var prediction models.Prediction
	err := s.db.Where("game_id = ?", gameID).First(&prediction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch prediction for game %d: %w", gameID, err)
	}
	return &prediction, nil
}

// Upsert writes the pre-game fields, keyed by game id. Live and grading fields of
// an existing row are preserved.
func (s *PredictionStore) Upsert(p *models.Prediction) error {
	existing, err := s.GetByGameID(p.GameID)
	if err != nil {
		return err
	}

	if existing == nil {
		if err := s.db.Create(p).Error; err != nil {
			return fmt.Errorf("failed to create prediction for game %d: %w", p.GameID, err)
		}
		return nil
	}

	err = s.db.Model(&models.Prediction{}).
		Where("game_id = ?", p.GameID).
		Updates(map[string]interface{}{
			"sport":            p.Sport,
			"season":           p.Season,
			"home_elo":         p.HomeElo,
			"away_elo":         p.AwayElo,
			"predicted_spread": p.PredictedSpread,
			"predicted_total":  p.PredictedTotal,
			"win_probability":  p.WinProbability,
			"confidence_score": p.ConfidenceScore,
			"components":       p.Components,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update prediction for game %d: %w", p.GameID, err)
	}
	p.ID = existing.ID
	return nil
}

// SaveLive overwrites the live fields for a game's prediction.
func (s *PredictionStore) SaveLive(gameID uint, spread, winProb, total float64, secondsRemaining int, updatedAt time.Time) error {
	err := s.db.Model(&models.Prediction{}).
		Where("game_id = ?", gameID).
		Updates(map[string]interface{}{
			"live_predicted_spread":  spread,
			"live_win_probability":   winProb,
			"live_predicted_total":   total,
			"live_seconds_remaining": secondsRemaining,
			"live_updated_at":        updatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to save live prediction for game %d: %w", gameID, err)
	}
	return nil
}

// ClearLive nulls the live fields, returning the prediction row to its pre-game
// shape. Used when a game leaves the in-progress state without going final.
func (s *PredictionStore) ClearLive(gameID uint) error {
	err := s.db.Model(&models.Prediction{}).
		Where("game_id = ?", gameID).
		Updates(map[string]interface{}{
			"live_predicted_spread":  nil,
			"live_win_probability":   nil,
			"live_predicted_total":   nil,
			"live_seconds_remaining": nil,
			"live_updated_at":        nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to clear live prediction for game %d: %w", gameID, err)
	}
	return nil
}

// ListUngraded returns predictions for final games with scores and no grade yet.
func (s *PredictionStore) ListUngraded(sport, season string) ([]models.Prediction, error) {
	query := s.db.
		Joins("JOIN games ON games.id = predictions.game_id").
		Where("predictions.sport = ? AND predictions.graded_at IS NULL", sport).
		Where("games.status = ? AND games.home_score IS NOT NULL AND games.away_score IS NOT NULL", models.GameStatusFinal)
	if season != "" {
		query = query.Where("predictions.season = ?", season)
	}

	var predictions []models.Prediction
	if err := query.Find(&predictions).Error; err != nil {
		return nil, fmt.Errorf("failed to list ungraded predictions for %s: %w", sport, err)
	}
	return predictions, nil
}

// SaveGrading writes grading fields at most once: the graded_at IS NULL guard makes
// a second grade of the same row a no-op. Returns whether the row was graded now.
func (s *PredictionStore) SaveGrading(predictionID uint, actualSpread, actualTotal, spreadError, totalError float64, winnerCorrect bool, gradedAt time.Time) (bool, error) {
	result := s.db.Model(&models.Prediction{}).
		Where("id = ? AND graded_at IS NULL", predictionID).
		Updates(map[string]interface{}{
			"actual_spread":  actualSpread,
			"actual_total":   actualTotal,
			"spread_error":   spreadError,
			"total_error":    totalError,
			"winner_correct": winnerCorrect,
			"graded_at":      gradedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to grade prediction %d: %w", predictionID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListGraded returns a sport's graded predictions, optionally per season.
func (s *PredictionStore) ListGraded(sport, season string) ([]models.Prediction, error) {
	query := s.db.Where("sport = ? AND graded_at IS NOT NULL", sport)
	if season != "" {
		query = query.Where("season = ?", season)
	}

	var predictions []models.Prediction
	if err := query.Find(&predictions).Error; err != nil {
		return nil, fmt.Errorf("failed to list graded predictions for %s: %w", sport, err)
	}
	return predictions, nil
}

// ListRecent returns a sport's most recent predictions for the read API.
func (s *PredictionStore) ListRecent(sport string, limit int) ([]models.Prediction, error) {
	if limit <= 0 {
		limit = 50
	}
	var predictions []models.Prediction
	err := s.db.
		Where("sport = ?", sport).
		Order("created_at DESC").
		Limit(limit).
		Find(&predictions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions for %s: %w", sport, err)
	}
	return predictions, nil
}
