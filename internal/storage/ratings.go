package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/pkg/database"
	"gorm.io/gorm"
)

// RatingStore reads and writes team/pitcher Elo ratings and their history. The
// history table doubles as the replay guard: one row per team per graded game.
type RatingStore struct {
	db *database.DB
}

func NewRatingStore(db *database.DB) *RatingStore {
	return &RatingStore{db: db}
}

// GetTeamRating returns the current rating row for a team, or nil when the team
// has never been rated.
func (s *RatingStore) GetTeamRating(teamID uint) (*models.TeamRating, error) {
	var rating models.TeamRating
	err := s.db.Where("team_id = ?", teamID).First(&rating).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch rating for team %d: %w", teamID, err)
	}
	return &rating, nil
}

// RatingOrDefault returns the team's current rating, falling back to the given
// default when the team has no rating row.
func (s *RatingStore) RatingOrDefault(teamID uint, def float64) (float64, error) {
	rating, err := s.GetTeamRating(teamID)
	if err != nil {
		return 0, err
	}
	if rating == nil {
		return def, nil
	}
	return rating.Rating, nil
}

// SaveTeamRating upserts the live rating value for a team.
func (s *RatingStore) SaveTeamRating(teamID uint, sport string, value float64) error {
	var rating models.TeamRating
	err := s.db.Where("team_id = ?", teamID).First(&rating).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to fetch rating for team %d: %w", teamID, err)
		}
		rating = models.TeamRating{TeamID: teamID, Sport: sport, Rating: value}
		if err := s.db.Create(&rating).Error; err != nil {
			return fmt.Errorf("failed to create rating for team %d: %w", teamID, err)
		}
		return nil
	}

	rating.Rating = value
	if err := s.db.Save(&rating).Error; err != nil {
		return fmt.Errorf("failed to update rating for team %d: %w", teamID, err)
	}
	return nil
}

// HistoryExists reports whether a history entry already exists for this team/game
// pair. Used by the Elo calculator to make replays a no-op.
func (s *RatingStore) HistoryExists(teamID, gameID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.RatingHistoryEntry{}).
		Where("team_id = ? AND game_id = ?", teamID, gameID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check rating history for team %d game %d: %w", teamID, gameID, err)
	}
	return count > 0, nil
}

// AppendHistory records one immutable rating change.
func (s *RatingStore) AppendHistory(entry *models.RatingHistoryEntry) error {
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append rating history: %w", err)
	}
	return nil
}

// ListHistory returns a team's rating history, newest first.
func (s *RatingStore) ListHistory(teamID uint, season string, limit int) ([]models.RatingHistoryEntry, error) {
	query := s.db.Where("team_id = ?", teamID).Order("game_date DESC")
	if season != "" {
		query = query.Where("season = ?", season)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.RatingHistoryEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list rating history for team %d: %w", teamID, err)
	}
	return entries, nil
}

// ListSportRatings returns all current ratings for a sport, strongest first.
func (s *RatingStore) ListSportRatings(sport string) ([]models.TeamRating, error) {
	var ratings []models.TeamRating
	err := s.db.Where("sport = ?", sport).Order("rating DESC").Find(&ratings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings for %s: %w", sport, err)
	}
	return ratings, nil
}

// PitcherRatingOrDefault returns a pitcher's current rating with default fallback.
func (s *RatingStore) PitcherRatingOrDefault(pitcherID uint, def float64) (float64, error) {
	var rating models.PitcherRating
	err := s.db.Where("pitcher_id = ?", pitcherID).First(&rating).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return def, nil
		}
		return 0, fmt.Errorf("failed to fetch rating for pitcher %d: %w", pitcherID, err)
	}
	return rating.Rating, nil
}

// SavePitcherRating upserts the live rating value for a pitcher.
func (s *RatingStore) SavePitcherRating(pitcherID uint, value float64) error {
	var rating models.PitcherRating
	err := s.db.Where("pitcher_id = ?", pitcherID).First(&rating).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to fetch rating for pitcher %d: %w", pitcherID, err)
		}
		rating = models.PitcherRating{PitcherID: pitcherID, Rating: value}
		if err := s.db.Create(&rating).Error; err != nil {
			return fmt.Errorf("failed to create rating for pitcher %d: %w", pitcherID, err)
		}
		return nil
	}

	rating.Rating = value
	if err := s.db.Save(&rating).Error; err != nil {
		return fmt.Errorf("failed to update rating for pitcher %d: %w", pitcherID, err)
	}
	return nil
}

// PitcherHistoryExists reports whether this pitcher/game pair was already rated.
func (s *RatingStore) PitcherHistoryExists(pitcherID, gameID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.PitcherRatingHistoryEntry{}).
		Where("pitcher_id = ? AND game_id = ?", pitcherID, gameID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check pitcher history for %d game %d: %w", pitcherID, gameID, err)
	}
	return count > 0, nil
}

// AppendPitcherHistory records one immutable pitcher rating change.
func (s *RatingStore) AppendPitcherHistory(pitcherID, gameID uint, season string, gameDate time.Time, after, change float64) error {
	entry := models.PitcherRatingHistoryEntry{
		PitcherID:    pitcherID,
		GameID:       gameID,
		Season:       season,
		GameDate:     gameDate,
		RatingAfter:  after,
		RatingChange: change,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append pitcher rating history: %w", err)
	}
	return nil
}
