package models

import (
	"time"
)

// Team is the minimal team identity the engine needs. Records are owned by the
// external ingestion layer; the engine only reads them.
type Team struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Sport        string    `gorm:"not null;index" json:"sport"` // "nfl", "nba", "ncaab", "mlb"
	Name         string    `gorm:"not null" json:"name"`
	Abbreviation string    `gorm:"index" json:"abbreviation"`
	ExternalID   string    `gorm:"index" json:"external_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Team) TableName() string {
	return "teams"
}

// TeamRating is the single live Elo value per team. Mutated only by the Elo
// calculator; a team with no row is treated as being at the sport's default rating.
type TeamRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"uniqueIndex;not null" json:"team_id"`
	Sport     string    `gorm:"not null;index" json:"sport"`
	Rating    float64   `gorm:"not null" json:"rating"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TeamRating) TableName() string {
	return "team_ratings"
}

// RatingHistoryEntry is the append-only audit trail of rating changes. One row per
// team per graded game; its existence is the idempotence guard for replayed games.
type RatingHistoryEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TeamID       uint      `gorm:"not null;index:idx_rating_history_team_game,unique" json:"team_id"`
	GameID       uint      `gorm:"not null;index:idx_rating_history_team_game,unique" json:"game_id"`
	Season       string    `gorm:"not null;index" json:"season"`
	GameDate     time.Time `json:"game_date"`
	RatingAfter  float64   `gorm:"not null" json:"rating_after"`
	RatingChange float64   `gorm:"not null" json:"rating_change"`
	CreatedAt    time.Time `json:"created_at"`
}

func (RatingHistoryEntry) TableName() string {
	return "rating_history"
}

// PitcherRating mirrors TeamRating for MLB starting pitchers.
type PitcherRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PitcherID uint      `gorm:"uniqueIndex;not null" json:"pitcher_id"`
	Rating    float64   `gorm:"not null" json:"rating"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PitcherRating) TableName() string {
	return "pitcher_ratings"
}

// PitcherRatingHistoryEntry is the per-game audit trail for pitcher ratings.
type PitcherRatingHistoryEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PitcherID    uint      `gorm:"not null;index:idx_pitcher_history_pitcher_game,unique" json:"pitcher_id"`
	GameID       uint      `gorm:"not null;index:idx_pitcher_history_pitcher_game,unique" json:"game_id"`
	Season       string    `gorm:"not null;index" json:"season"`
	GameDate     time.Time `json:"game_date"`
	RatingAfter  float64   `gorm:"not null" json:"rating_after"`
	RatingChange float64   `gorm:"not null" json:"rating_change"`
	CreatedAt    time.Time `json:"created_at"`
}

func (PitcherRatingHistoryEntry) TableName() string {
	return "pitcher_rating_history"
}
