package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"
)

// Spread/total strategy selectors. Which one a sport uses is part of its profile;
// the generator picks the matching implementation at construction time.
const (
	SpreadStrategyEloOnly         = "elo_only"
	SpreadStrategyEfficiencyBlend = "efficiency_blend"

	TotalStrategyLeagueAverage  = "league_average"
	TotalStrategyPaceEfficiency = "pace_efficiency"
)

// Live clock families. They share the blending formulas but differ in clock math.
const (
	LiveFamilyFootball           = "football"
	LiveFamilyBasketball         = "basketball"
	LiveFamilyBasketballAdvanced = "basketball_advanced"
)

// MarginTier maps an absolute score margin ceiling to a K-factor multiplier.
// A nil MaxMargin marks the unbounded top tier.
type MarginTier struct {
	MaxMargin  *float64 `mapstructure:"max_margin" yaml:"max_margin"`
	Multiplier float64  `mapstructure:"multiplier" yaml:"multiplier"`
}

// ComponentWeights are the model-component weights for the efficiency-blend spread
// strategy. The model weights (everything except Market) must sum to 1; the market
// blend is applied afterwards with weight Market against (1-Market) on the model.
type ComponentWeights struct {
	Elo            float64 `mapstructure:"elo" yaml:"elo"`
	Efficiency     float64 `mapstructure:"efficiency" yaml:"efficiency"`
	RecentForm     float64 `mapstructure:"recent_form" yaml:"recent_form"`
	VenueSplit     float64 `mapstructure:"venue_split" yaml:"venue_split"`
	Rest           float64 `mapstructure:"rest" yaml:"rest"`
	TurnoverMargin float64 `mapstructure:"turnover_margin" yaml:"turnover_margin"`
	ReboundMargin  float64 `mapstructure:"rebound_margin" yaml:"rebound_margin"`
	Market         float64 `mapstructure:"market" yaml:"market"`
}

// ModelSum returns the sum of the pre-market model weights.
func (w ComponentWeights) ModelSum() float64 {
	return w.Elo + w.Efficiency + w.RecentForm + w.VenueSplit + w.Rest + w.TurnoverMargin + w.ReboundMargin
}

// LiveProfile holds the clock constants the live updater needs.
type LiveProfile struct {
	Family             string   `mapstructure:"family" yaml:"family"`
	SecondsPerPeriod   int      `mapstructure:"seconds_per_period" yaml:"seconds_per_period"`
	RegulationPeriods  int      `mapstructure:"regulation_periods" yaml:"regulation_periods"`
	OvertimeSeconds    int      `mapstructure:"overtime_seconds" yaml:"overtime_seconds"`
	InProgressStatuses []string `mapstructure:"in_progress_statuses" yaml:"in_progress_statuses"`
	MaxTotalFactor     float64  `mapstructure:"max_total_factor" yaml:"max_total_factor"`
	OvertimeTotalBump  float64  `mapstructure:"overtime_total_bump" yaml:"overtime_total_bump"`
}

// RegulationSeconds returns the full regulation game length in seconds.
func (l LiveProfile) RegulationSeconds() int {
	return l.SecondsPerPeriod * l.RegulationPeriods
}

// IsInProgress reports whether the status belongs to this sport's in-progress set.
func (l LiveProfile) IsInProgress(status string) bool {
	for _, s := range l.InProgressStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// SportProfile is the full constant set for one sport's engine. Profiles are
// validated at component construction; a missing constant is a configuration error,
// never silently defaulted.
type SportProfile struct {
	Sport string `mapstructure:"sport" yaml:"sport"`

	// Elo
	DefaultRating     float64 `mapstructure:"default_rating" yaml:"default_rating"`
	BaseKFactor       float64 `mapstructure:"base_k_factor" yaml:"base_k_factor"`
	HomeAdvantage     float64 `mapstructure:"home_advantage" yaml:"home_advantage"`
	PlayoffMultiplier float64 `mapstructure:"playoff_multiplier" yaml:"playoff_multiplier"`
	RecencyWeeks      int     `mapstructure:"recency_weeks" yaml:"recency_weeks"`
	RecencyMultiplier float64 `mapstructure:"recency_multiplier" yaml:"recency_multiplier"`

	// Margin-of-victory scaling: exactly one of the tier table or the log form
	MarginTiers      []MarginTier `mapstructure:"margin_tiers" yaml:"margin_tiers"`
	MOVCoefficient   float64      `mapstructure:"mov_coefficient" yaml:"mov_coefficient"`
	MaxMOVMultiplier float64      `mapstructure:"max_mov_multiplier" yaml:"max_mov_multiplier"`

	// Strength-of-schedule dampener, disabled when SOSDivisor is 0
	SOSDivisor float64 `mapstructure:"sos_divisor" yaml:"sos_divisor"`
	SOSFloor   float64 `mapstructure:"sos_floor" yaml:"sos_floor"`

	// Opponent adjustment
	PossessionCoefficient   float64 `mapstructure:"possession_coefficient" yaml:"possession_coefficient"`
	MaxAdjustmentIterations int     `mapstructure:"max_adjustment_iterations" yaml:"max_adjustment_iterations"`
	ConvergenceThreshold    float64 `mapstructure:"convergence_threshold" yaml:"convergence_threshold"`
	DampingFactor           float64 `mapstructure:"damping_factor" yaml:"damping_factor"`
	NormalizationBaseline   float64 `mapstructure:"normalization_baseline" yaml:"normalization_baseline"`

	// Prediction
	EloToSpreadDivisor             float64          `mapstructure:"elo_to_spread_divisor" yaml:"elo_to_spread_divisor"`
	AveragePace                    float64          `mapstructure:"average_pace" yaml:"average_pace"`
	DefaultEfficiency              float64          `mapstructure:"default_efficiency" yaml:"default_efficiency"`
	SpreadToProbabilityCoefficient float64          `mapstructure:"spread_to_probability_coefficient" yaml:"spread_to_probability_coefficient"`
	Weights                        ComponentWeights `mapstructure:"component_weights" yaml:"component_weights"`
	SpreadStrategy                 string           `mapstructure:"spread_strategy" yaml:"spread_strategy"`
	TotalStrategy                  string           `mapstructure:"total_strategy" yaml:"total_strategy"`
	RestAdvantagePerDay            float64          `mapstructure:"rest_advantage_per_day" yaml:"rest_advantage_per_day"`
	MaxRestAdvantage               float64          `mapstructure:"max_rest_advantage" yaml:"max_rest_advantage"`
	RecentFormGames                int              `mapstructure:"recent_form_games" yaml:"recent_form_games"`
	RollingDecay                   float64          `mapstructure:"rolling_decay" yaml:"rolling_decay"`

	// Pitcher ratings (MLB only)
	PitcherRatings       bool    `mapstructure:"pitcher_ratings" yaml:"pitcher_ratings"`
	PitcherDefaultRating float64 `mapstructure:"pitcher_default_rating" yaml:"pitcher_default_rating"`
	PitcherKFactor       float64 `mapstructure:"pitcher_k_factor" yaml:"pitcher_k_factor"`
	PitcherSpreadDivisor float64 `mapstructure:"pitcher_spread_divisor" yaml:"pitcher_spread_divisor"`

	// Live updater
	Live LiveProfile `mapstructure:"live" yaml:"live"`
}

// Validate reports every missing or inconsistent constant at once so an operator
// can fix a profile in one pass.
func (p *SportProfile) Validate() error {
	var missing []string

	if p.Sport == "" {
		missing = append(missing, "sport")
	}
	if p.DefaultRating <= 0 {
		missing = append(missing, "default_rating")
	}
	if p.BaseKFactor <= 0 {
		missing = append(missing, "base_k_factor")
	}
	if p.HomeAdvantage < 0 {
		missing = append(missing, "home_advantage")
	}
	if p.PlayoffMultiplier <= 0 {
		missing = append(missing, "playoff_multiplier")
	}
	if len(p.MarginTiers) == 0 && p.MOVCoefficient <= 0 {
		missing = append(missing, "margin_tiers or mov_coefficient")
	}
	if len(p.MarginTiers) > 0 && p.MOVCoefficient > 0 {
		return fmt.Errorf("sport profile %q: margin_tiers and mov_coefficient are mutually exclusive", p.Sport)
	}
	if p.MOVCoefficient > 0 && p.MaxMOVMultiplier <= 0 {
		missing = append(missing, "max_mov_multiplier")
	}
	if p.SOSDivisor > 0 && p.SOSFloor <= 0 {
		missing = append(missing, "sos_floor")
	}
	if p.MaxAdjustmentIterations <= 0 {
		missing = append(missing, "max_adjustment_iterations")
	}
	if p.ConvergenceThreshold <= 0 {
		missing = append(missing, "convergence_threshold")
	}
	if p.DampingFactor <= 0 || p.DampingFactor >= 1 {
		missing = append(missing, "damping_factor")
	}
	if p.NormalizationBaseline <= 0 {
		missing = append(missing, "normalization_baseline")
	}
	if p.EloToSpreadDivisor <= 0 {
		missing = append(missing, "elo_to_spread_divisor")
	}
	if p.AveragePace <= 0 {
		missing = append(missing, "average_pace")
	}
	if p.DefaultEfficiency <= 0 {
		missing = append(missing, "default_efficiency")
	}
	if p.SpreadToProbabilityCoefficient <= 0 {
		missing = append(missing, "spread_to_probability_coefficient")
	}
	switch p.SpreadStrategy {
	case SpreadStrategyEloOnly:
	case SpreadStrategyEfficiencyBlend:
		if sum := p.Weights.ModelSum(); math.Abs(sum-1.0) > 1e-6 {
			return fmt.Errorf("sport profile %q: component weights sum to %.4f, want 1", p.Sport, sum)
		}
		if p.Weights.Market < 0 || p.Weights.Market >= 1 {
			missing = append(missing, "component_weights.market")
		}
		if p.RecentFormGames <= 0 {
			missing = append(missing, "recent_form_games")
		}
		if p.RollingDecay <= 0 || p.RollingDecay >= 1 {
			missing = append(missing, "rolling_decay")
		}
	default:
		missing = append(missing, "spread_strategy")
	}
	switch p.TotalStrategy {
	case TotalStrategyLeagueAverage, TotalStrategyPaceEfficiency:
	default:
		missing = append(missing, "total_strategy")
	}
	if p.PitcherRatings {
		if p.PitcherDefaultRating <= 0 {
			missing = append(missing, "pitcher_default_rating")
		}
		if p.PitcherKFactor <= 0 {
			missing = append(missing, "pitcher_k_factor")
		}
		if p.PitcherSpreadDivisor <= 0 {
			missing = append(missing, "pitcher_spread_divisor")
		}
	}

	switch p.Live.Family {
	case LiveFamilyFootball, LiveFamilyBasketball, LiveFamilyBasketballAdvanced:
	default:
		missing = append(missing, "live.family")
	}
	if p.Live.SecondsPerPeriod <= 0 {
		missing = append(missing, "live.seconds_per_period")
	}
	if p.Live.RegulationPeriods <= 0 {
		missing = append(missing, "live.regulation_periods")
	}
	if p.Live.OvertimeSeconds <= 0 {
		missing = append(missing, "live.overtime_seconds")
	}
	if len(p.Live.InProgressStatuses) == 0 {
		missing = append(missing, "live.in_progress_statuses")
	}
	if p.Live.MaxTotalFactor <= 1 {
		missing = append(missing, "live.max_total_factor")
	}

	if len(missing) > 0 {
		return fmt.Errorf("sport profile %q: missing or invalid constants: %s", p.Sport, strings.Join(missing, ", "))
	}
	return nil
}

func floatPtr(v float64) *float64 { return &v }

// DefaultProfiles returns the built-in constant sets for the supported sports.
func DefaultProfiles() map[string]SportProfile {
	return map[string]SportProfile{
		"nfl": {
			Sport:             "nfl",
			DefaultRating:     1500,
			BaseKFactor:       20,
			HomeAdvantage:     48,
			PlayoffMultiplier: 1.2,
			RecencyWeeks:      4,
			RecencyMultiplier: 1.25,
			MarginTiers: []MarginTier{
				{MaxMargin: floatPtr(3), Multiplier: 1.0},
				{MaxMargin: floatPtr(7), Multiplier: 1.1},
				{MaxMargin: floatPtr(14), Multiplier: 1.25},
				{MaxMargin: floatPtr(21), Multiplier: 1.4},
				{MaxMargin: nil, Multiplier: 1.6},
			},
			SOSDivisor:                     1200,
			SOSFloor:                       0.5,
			Weights:                        ComponentWeights{Market: 0.30},
			PossessionCoefficient:          1.0,
			MaxAdjustmentIterations:        50,
			ConvergenceThreshold:           0.05,
			DampingFactor:                  0.5,
			NormalizationBaseline:          100,
			EloToSpreadDivisor:             25,
			AveragePace:                    22,
			DefaultEfficiency:              100,
			SpreadToProbabilityCoefficient: 8.2, // ~70% at a 7 point spread
			SpreadStrategy:                 SpreadStrategyEloOnly,
			TotalStrategy:                  TotalStrategyLeagueAverage,
			Live: LiveProfile{
				Family:             LiveFamilyFootball,
				SecondsPerPeriod:   900,
				RegulationPeriods:  4,
				OvertimeSeconds:    600,
				InProgressStatuses: []string{"in_progress", "halftime", "end_period"},
				MaxTotalFactor:     2.2,
				OvertimeTotalBump:  10,
			},
		},
		"nba": {
			Sport:             "nba",
			DefaultRating:     1500,
			BaseKFactor:       20,
			HomeAdvantage:     70,
			PlayoffMultiplier: 1.3,
			RecencyWeeks:      3,
			RecencyMultiplier: 1.2,
			MOVCoefficient:    0.18,
			MaxMOVMultiplier:  1.8,
			SOSDivisor:        1400,
			SOSFloor:          0.6,
			Weights: ComponentWeights{
				Elo:            0.30,
				Efficiency:     0.30,
				RecentForm:     0.15,
				VenueSplit:     0.10,
				Rest:           0.05,
				TurnoverMargin: 0.05,
				ReboundMargin:  0.05,
				Market:         0.25,
			},
			PossessionCoefficient:          0.96,
			MaxAdjustmentIterations:        100,
			ConvergenceThreshold:           0.01,
			DampingFactor:                  0.35,
			NormalizationBaseline:          100,
			EloToSpreadDivisor:             28,
			AveragePace:                    99.5,
			DefaultEfficiency:              112,
			SpreadToProbabilityCoefficient: 8.0,
			SpreadStrategy:                 SpreadStrategyEfficiencyBlend,
			TotalStrategy:                  TotalStrategyPaceEfficiency,
			RestAdvantagePerDay:            0.6,
			MaxRestAdvantage:               2.5,
			RecentFormGames:                10,
			RollingDecay:                   0.85,
			Live: LiveProfile{
				Family:             LiveFamilyBasketballAdvanced,
				SecondsPerPeriod:   720,
				RegulationPeriods:  4,
				OvertimeSeconds:    300,
				InProgressStatuses: []string{"in_progress", "halftime", "end_period"},
				MaxTotalFactor:     1.6,
				OvertimeTotalBump:  12,
			},
		},
		"ncaab": {
			Sport:             "ncaab",
			DefaultRating:     1500,
			BaseKFactor:       24,
			HomeAdvantage:     90,
			PlayoffMultiplier: 1.35,
			RecencyWeeks:      3,
			RecencyMultiplier: 1.3,
			MOVCoefficient:    0.20,
			MaxMOVMultiplier:  2.0,
			Weights: ComponentWeights{
				Elo:            0.35,
				Efficiency:     0.35,
				RecentForm:     0.12,
				VenueSplit:     0.08,
				Rest:           0.02,
				TurnoverMargin: 0.04,
				ReboundMargin:  0.04,
				Market:         0.20,
			},
			PossessionCoefficient:          0.96,
			MaxAdjustmentIterations:        120,
			ConvergenceThreshold:           0.01,
			DampingFactor:                  0.30,
			NormalizationBaseline:          100,
			EloToSpreadDivisor:             30,
			AveragePace:                    68,
			DefaultEfficiency:              103,
			SpreadToProbabilityCoefficient: 7.5,
			SpreadStrategy:                 SpreadStrategyEfficiencyBlend,
			TotalStrategy:                  TotalStrategyPaceEfficiency,
			RestAdvantagePerDay:            0.4,
			MaxRestAdvantage:               2.0,
			RecentFormGames:                8,
			RollingDecay:                   0.82,
			Live: LiveProfile{
				Family:             LiveFamilyBasketball,
				SecondsPerPeriod:   1200,
				RegulationPeriods:  2,
				OvertimeSeconds:    300,
				InProgressStatuses: []string{"in_progress", "halftime"},
				MaxTotalFactor:     1.6,
				OvertimeTotalBump:  10,
			},
		},
		"mlb": {
			Sport:             "mlb",
			DefaultRating:     1500,
			BaseKFactor:       8,
			HomeAdvantage:     24,
			PlayoffMultiplier: 1.25,
			RecencyWeeks:      2,
			RecencyMultiplier: 1.1,
			MarginTiers: []MarginTier{
				{MaxMargin: floatPtr(1), Multiplier: 1.0},
				{MaxMargin: floatPtr(3), Multiplier: 1.1},
				{MaxMargin: floatPtr(5), Multiplier: 1.2},
				{MaxMargin: nil, Multiplier: 1.35},
			},
			Weights:                        ComponentWeights{Market: 0.35},
			PossessionCoefficient:          1.0,
			MaxAdjustmentIterations:        60,
			ConvergenceThreshold:           0.02,
			DampingFactor:                  0.4,
			NormalizationBaseline:          100,
			EloToSpreadDivisor:             110,
			AveragePace:                    38, // plate appearances proxy per side
			DefaultEfficiency:              100,
			SpreadToProbabilityCoefficient: 2.2,
			SpreadStrategy:                 SpreadStrategyEloOnly,
			TotalStrategy:                  TotalStrategyLeagueAverage,
			PitcherRatings:                 true,
			PitcherDefaultRating:           1500,
			PitcherKFactor:                 5,
			PitcherSpreadDivisor:           220,
			Live: LiveProfile{
				Family:             LiveFamilyFootball,
				SecondsPerPeriod:   1200, // innings proxied onto a fixed clock
				RegulationPeriods:  9,
				OvertimeSeconds:    1200,
				InProgressStatuses: []string{"in_progress"},
				MaxTotalFactor:     2.5,
				OvertimeTotalBump:  2,
			},
		},
	}
}

// LoadSportProfiles returns the profile set for the given sports, starting from the
// built-in defaults and applying overrides from the YAML file at path when set.
// Every returned profile has been validated.
func LoadSportProfiles(path string, sports []string) (map[string]SportProfile, error) {
	profiles := DefaultProfiles()

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading sport profiles from %s: %w", path, err)
		}
		for key := range profiles {
			if !v.IsSet(key) {
				continue
			}
			profile := profiles[key]
			if err := v.UnmarshalKey(key, &profile); err != nil {
				return nil, fmt.Errorf("unable to decode sport profile %q: %w", key, err)
			}
			profiles[key] = profile
		}
	}

	selected := make(map[string]SportProfile, len(sports))
	for _, sport := range sports {
		profile, ok := profiles[sport]
		if !ok {
			return nil, fmt.Errorf("no sport profile defined for %q", sport)
		}
		if err := profile.Validate(); err != nil {
			return nil, err
		}
		selected[sport] = profile
	}
	return selected, nil
}
