package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/pkg/database"
	"gorm.io/gorm"
)

// GameStore reads game records and stat lines owned by the ingestion layer.
type GameStore struct {
	db *database.DB
}

func NewGameStore(db *database.DB) *GameStore {
	return &GameStore{db: db}
}

// GetGame returns a game by id, or nil when it does not exist.
func (s *GameStore) GetGame(gameID uint) (*models.Game, error) {
	var game models.Game
	err := s.db.First(&game, gameID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch game %d: %w", gameID, err)
	}
	return &game, nil
}

// ListUnratedFinalGames returns final games that have no rating history yet, i.e.
// the Elo backlog. Games already applied are filtered by the history join.
func (s *GameStore) ListUnratedFinalGames(sport string, limit int) ([]models.Game, error) {
	query := s.db.
		Where("sport = ? AND status = ?", sport, models.GameStatusFinal).
		Where("id NOT IN (?)", s.db.Model(&models.RatingHistoryEntry{}).Select("game_id")).
		Order("game_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var games []models.Game
	if err := query.Find(&games).Error; err != nil {
		return nil, fmt.Errorf("failed to list unrated games for %s: %w", sport, err)
	}
	return games, nil
}

// ListUpcomingGames returns scheduled games starting within the window.
func (s *GameStore) ListUpcomingGames(sport string, window time.Duration) ([]models.Game, error) {
	now := time.Now().UTC()
	var games []models.Game
	err := s.db.
		Where("sport = ? AND status = ?", sport, models.GameStatusScheduled).
		Where("game_date BETWEEN ? AND ?", now, now.Add(window)).
		Order("game_date ASC").
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming games for %s: %w", sport, err)
	}
	return games, nil
}

// ListGamesByStatus returns a sport's games in any of the given statuses.
func (s *GameStore) ListGamesByStatus(sport string, statuses []string) ([]models.Game, error) {
	var games []models.Game
	err := s.db.
		Where("sport = ? AND status IN (?)", sport, statuses).
		Order("game_date ASC").
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list games by status for %s: %w", sport, err)
	}
	return games, nil
}

// TeamExists reports whether the team id resolves.
func (s *GameStore) TeamExists(teamID uint) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Team{}).Where("id = ?", teamID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check team %d: %w", teamID, err)
	}
	return count > 0, nil
}

// ListSeasonStatLines returns every stat line for a sport's season. Input to the
// opponent adjustment run.
func (s *GameStore) ListSeasonStatLines(sport, season string) ([]models.TeamStatLine, error) {
	var lines []models.TeamStatLine
	err := s.db.
		Joins("JOIN games ON games.id = team_stat_lines.game_id").
		Where("games.sport = ? AND team_stat_lines.season = ?", sport, season).
		Order("team_stat_lines.game_date ASC").
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stat lines for %s %s: %w", sport, season, err)
	}
	return lines, nil
}

// ListTeamStatLines returns a team's most recent stat lines for a season, newest
// first, capped at limit.
func (s *GameStore) ListTeamStatLines(teamID uint, season string, limit int) ([]models.TeamStatLine, error) {
	query := s.db.
		Where("team_id = ? AND season = ?", teamID, season).
		Order("game_date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var lines []models.TeamStatLine
	if err := query.Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("failed to list stat lines for team %d: %w", teamID, err)
	}
	return lines, nil
}

// LastGameDate returns the date of the team's most recent game before the given
// time, or nil when the team has not played yet. Used for rest-day signals.
func (s *GameStore) LastGameDate(teamID uint, before time.Time) (*time.Time, error) {
	var line models.TeamStatLine
	err := s.db.
		Where("team_id = ? AND game_date < ?", teamID, before).
		Order("game_date DESC").
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch last game date for team %d: %w", teamID, err)
	}
	return &line.GameDate, nil
}
