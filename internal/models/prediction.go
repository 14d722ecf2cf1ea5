package models

import (
	"time"

	"gorm.io/datatypes"
)

// Prediction is the engine's forecast for one game, unique on GameID. Pre-game
// fields are written by the generator (idempotent upsert), live fields by the live
// updater while the game is in progress, grading fields exactly once by the grader.
type Prediction struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	GameID uint   `gorm:"uniqueIndex;not null" json:"game_id"`
	Sport  string `gorm:"not null;index" json:"sport"`
	Season string `gorm:"not null;index" json:"season"`

	// Pre-game forecast (home-team perspective: positive spread favors home)
	HomeElo         float64 `json:"home_elo"`
	AwayElo         float64 `json:"away_elo"`
	PredictedSpread float64 `json:"predicted_spread"`
	PredictedTotal  float64 `json:"predicted_total"`
	WinProbability  float64 `json:"win_probability"`
	ConfidenceScore float64 `json:"confidence_score"`

	// Per-component spread contributions, kept for explainability
	Components datatypes.JSON `gorm:"type:jsonb" json:"components,omitempty"`

	// Live forecast, present only while the game is in progress
	LivePredictedSpread  *float64   `json:"live_predicted_spread,omitempty"`
	LiveWinProbability   *float64   `json:"live_win_probability,omitempty"`
	LivePredictedTotal   *float64   `json:"live_predicted_total,omitempty"`
	LiveSecondsRemaining *int       `json:"live_seconds_remaining,omitempty"`
	LiveUpdatedAt        *time.Time `json:"live_updated_at,omitempty"`

	// Grading, set at most once
	ActualSpread  *float64   `json:"actual_spread,omitempty"`
	ActualTotal   *float64   `json:"actual_total,omitempty"`
	SpreadError   *float64   `json:"spread_error,omitempty"`
	TotalError    *float64   `json:"total_error,omitempty"`
	WinnerCorrect *bool      `json:"winner_correct,omitempty"`
	GradedAt      *time.Time `json:"graded_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Prediction) TableName() string {
	return "predictions"
}

// IsGraded reports whether grading has already been applied.
func (p *Prediction) IsGraded() bool {
	return p.GradedAt != nil
}

// HasLiveData reports whether any live field is populated.
func (p *Prediction) HasLiveData() bool {
	return p.LivePredictedSpread != nil || p.LiveWinProbability != nil || p.LivePredictedTotal != nil
}
