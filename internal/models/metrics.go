package models

import (
	"time"
)

// TeamEfficiencyMetric holds one team's per-season efficiency aggregates: raw values
// synced by the ingestion layer, plus the adjusted / rolling / venue-split variants
// the engine derives. Adjusted values are recomputed wholesale by each opponent
// adjustment run, never incrementally mutated.
type TeamEfficiencyMetric struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	TeamID uint   `gorm:"not null;index:idx_efficiency_team_season,unique" json:"team_id"`
	Season string `gorm:"not null;index:idx_efficiency_team_season,unique" json:"season"`
	Sport  string `gorm:"not null;index" json:"sport"`

	// Raw season aggregates (per 100 possessions)
	OffensiveEfficiency float64 `json:"offensive_efficiency"`
	DefensiveEfficiency float64 `json:"defensive_efficiency"`
	Tempo               float64 `json:"tempo"`
	GamesPlayed         int     `json:"games_played"`

	// Opponent-adjusted values, normalized so the league average sits at the
	// configured baseline
	AdjOffensiveEfficiency float64 `json:"adj_offensive_efficiency"`
	AdjDefensiveEfficiency float64 `json:"adj_defensive_efficiency"`
	AdjNetRating           float64 `json:"adj_net_rating"`
	AdjTempo               float64 `json:"adj_tempo"`

	// Recency-weighted rolling values
	RollingOffensiveEfficiency float64 `json:"rolling_offensive_efficiency"`
	RollingDefensiveEfficiency float64 `json:"rolling_defensive_efficiency"`

	// Home/away split efficiencies
	HomeOffensiveEfficiency float64 `json:"home_offensive_efficiency"`
	HomeDefensiveEfficiency float64 `json:"home_defensive_efficiency"`
	AwayOffensiveEfficiency float64 `json:"away_offensive_efficiency"`
	AwayDefensiveEfficiency float64 `json:"away_defensive_efficiency"`

	// Observability for the adjustment run
	AdjustmentIterations int        `json:"adjustment_iterations"`
	AdjustmentConverged  bool       `json:"adjustment_converged"`
	AdjustedAt           *time.Time `json:"adjusted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TeamEfficiencyMetric) TableName() string {
	return "team_efficiency_metrics"
}
