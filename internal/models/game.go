package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Game statuses as supplied by the ingestion layer.
const (
	GameStatusScheduled  = "scheduled"
	GameStatusInProgress = "in_progress"
	GameStatusHalftime   = "halftime"
	GameStatusEndPeriod  = "end_period"
	GameStatusFinal      = "final"
	GameStatusPostponed  = "postponed"
	GameStatusCanceled   = "canceled"
)

// OddsData is the optional bookmaker payload attached to a game by the ingestion
// layer: spread/total lines and American-format moneylines, home-team perspective.
type OddsData struct {
	Spread        *float64 `json:"spread,omitempty"`
	Total         *float64 `json:"total,omitempty"`
	HomeMoneyline *int     `json:"home_moneyline,omitempty"`
	AwayMoneyline *int     `json:"away_moneyline,omitempty"`
	Bookmaker     string   `json:"bookmaker,omitempty"`
}

// Scan implements the sql.Scanner interface for JSONB
func (o *OddsData) Scan(value interface{}) error {
	if value == nil {
		*o = OddsData{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("cannot scan %T into OddsData", value)
		}
	}

	return json.Unmarshal(bytes, o)
}

// Value implements the driver.Valuer interface for JSONB
func (o OddsData) Value() (driver.Value, error) {
	return json.Marshal(o)
}

// Game is a game record as maintained by the external ingestion layer. Read-only to
// the engine; grading writes derived fields onto the associated Prediction, never here.
type Game struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Sport      string    `gorm:"not null;index" json:"sport"`
	Season     string    `gorm:"not null;index" json:"season"`
	SeasonType string    `gorm:"default:regular" json:"season_type"` // "regular" or "postseason"
	Week       *int      `json:"week,omitempty"`
	Status     string    `gorm:"not null;index" json:"status"`
	HomeTeamID uint      `gorm:"not null;index" json:"home_team_id"`
	AwayTeamID uint      `gorm:"not null;index" json:"away_team_id"`
	HomeScore  *int      `json:"home_score,omitempty"`
	AwayScore  *int      `json:"away_score,omitempty"`
	Period     int       `json:"period"`
	GameClock  string    `json:"game_clock"` // "MM:SS" within the current period
	GameDate   time.Time `gorm:"index" json:"game_date"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// MLB probable starters, when the ingestion layer knows them
	HomePitcherID *uint `json:"home_pitcher_id,omitempty"`
	AwayPitcherID *uint `json:"away_pitcher_id,omitempty"`

	// Bookmaker lines stored as JSON
	Odds *OddsData `gorm:"type:jsonb" json:"odds,omitempty"`
}

func (Game) TableName() string {
	return "games"
}

// IsFinal reports whether the game has a settled outcome.
func (g *Game) IsFinal() bool {
	return g.Status == GameStatusFinal
}

// IsPlayoff reports whether the game is a postseason contest.
func (g *Game) IsPlayoff() bool {
	return g.SeasonType == "postseason"
}

// HasScores reports whether both final/current scores are present.
func (g *Game) HasScores() bool {
	return g.HomeScore != nil && g.AwayScore != nil
}

// TeamStatLine is the per-team-per-game raw box score supplied by the ingestion
// layer. Input to opponent adjustment and recent-form signals; read-only here.
type TeamStatLine struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	GameID         uint      `gorm:"not null;index:idx_stat_lines_game_team,unique" json:"game_id"`
	TeamID         uint      `gorm:"not null;index:idx_stat_lines_game_team,unique;index" json:"team_id"`
	OpponentID     uint      `gorm:"not null" json:"opponent_id"`
	Season         string    `gorm:"not null;index" json:"season"`
	GameDate       time.Time `gorm:"index" json:"game_date"`
	IsHome         bool      `json:"is_home"`
	Points         int       `json:"points"`
	PointsAllowed  int       `json:"points_allowed"`
	Possessions    float64   `json:"possessions"`
	Turnovers      int       `json:"turnovers"`
	Rebounds       int       `json:"rebounds"`
	OpponentReb    int       `json:"opponent_rebounds"`
	FieldGoalsMade int       `json:"field_goals_made"`
	FieldGoalsAtt  int       `json:"field_goals_attempted"`
	CreatedAt      time.Time `json:"created_at"`
}

func (TeamStatLine) TableName() string {
	return "team_stat_lines"
}

// EffectivePossessions returns the recorded possession count, falling back to
// the field-goal estimate coefficient*(FGA+TO) when the ingestion layer omitted
// possessions. 0 when neither is available (callers must treat 0 as "no data").
func (s *TeamStatLine) EffectivePossessions(coefficient float64) float64 {
	if s.Possessions > 0 {
		return s.Possessions
	}
	if coefficient > 0 && s.FieldGoalsAtt > 0 {
		return coefficient * float64(s.FieldGoalsAtt+s.Turnovers)
	}
	return 0
}

// OffensiveEfficiency returns points per 100 effective possessions, 0 when no
// possession count is available or estimable.
func (s *TeamStatLine) OffensiveEfficiency(coefficient float64) float64 {
	poss := s.EffectivePossessions(coefficient)
	if poss <= 0 {
		return 0
	}
	return float64(s.Points) / poss * 100
}

// DefensiveEfficiency returns points allowed per 100 effective possessions.
func (s *TeamStatLine) DefensiveEfficiency(coefficient float64) float64 {
	poss := s.EffectivePossessions(coefficient)
	if poss <= 0 {
		return 0
	}
	return float64(s.PointsAllowed) / poss * 100
}
