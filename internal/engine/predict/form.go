package predict

import (
	"math"
	"time"

	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/internal/storage"
	"github.com/jstittsworth/gridline/pkg/config"
)

// FormSignal is a team's recency-weighted recent-form summary over its last N
// stat lines.
type FormSignal struct {
	Margin         float64 // weighted average point margin
	TurnoverMargin float64 // weighted average turnover margin (opponent TOs unknown, so negated own rate vs league is proxied by -turnovers)
	ReboundMargin  float64 // weighted average rebound margin
	Games          int
}

// recentForm builds the form signal from a team's latest stat lines, newest first
// as returned by the store, with exponentially decaying weights.
func recentForm(games *storage.GameStore, profile config.SportProfile, teamID uint, season string) (FormSignal, error) {
	n := profile.RecentFormGames
	if n <= 0 {
		return FormSignal{}, nil
	}
	lines, err := games.ListTeamStatLines(teamID, season, n)
	if err != nil {
		return FormSignal{}, err
	}
	if len(lines) == 0 {
		return FormSignal{}, nil
	}

	decay := profile.RollingDecay
	if decay <= 0 || decay >= 1 {
		decay = 0.85
	}

	var margin, turnover, rebound, weightSum float64
	weight := 1.0
	for i := range lines {
		line := &lines[i]
		margin += float64(line.Points-line.PointsAllowed) * weight
		turnover += float64(-line.Turnovers) * weight
		rebound += float64(line.Rebounds-line.OpponentReb) * weight
		weightSum += weight
		weight *= decay
	}

	return FormSignal{
		Margin:         margin / weightSum,
		TurnoverMargin: turnover / weightSum,
		ReboundMargin:  rebound / weightSum,
		Games:          len(lines),
	}, nil
}

// restDays returns full days between a team's previous game and this game's date,
// capped at 7 so long layoffs don't dominate the rest signal.
func restDays(games *storage.GameStore, teamID uint, gameDate time.Time) (float64, error) {
	last, err := games.LastGameDate(teamID, gameDate)
	if err != nil {
		return 0, err
	}
	if last == nil {
		return 0, nil
	}
	days := gameDate.Sub(*last).Hours() / 24
	return math.Min(math.Floor(days), 7), nil
}

// resolveMetric returns the stored season metrics or a league-default stand-in for
// teams with no row yet. The single defaulting policy for efficiency inputs.
func resolveMetric(m *models.TeamEfficiencyMetric, profile config.SportProfile) models.TeamEfficiencyMetric {
	if m != nil {
		resolved := *m
		// Adjusted fields are zero until the first adjustment run; fall back to
		// raw, then to the league default.
		if resolved.AdjOffensiveEfficiency <= 0 {
			resolved.AdjOffensiveEfficiency = firstPositive(resolved.OffensiveEfficiency, profile.DefaultEfficiency)
		}
		if resolved.AdjDefensiveEfficiency <= 0 {
			resolved.AdjDefensiveEfficiency = firstPositive(resolved.DefensiveEfficiency, profile.DefaultEfficiency)
		}
		if resolved.AdjTempo <= 0 {
			resolved.AdjTempo = firstPositive(resolved.Tempo, profile.AveragePace)
		}
		if resolved.RollingOffensiveEfficiency <= 0 {
			resolved.RollingOffensiveEfficiency = resolved.AdjOffensiveEfficiency
		}
		if resolved.RollingDefensiveEfficiency <= 0 {
			resolved.RollingDefensiveEfficiency = resolved.AdjDefensiveEfficiency
		}
		resolved.AdjNetRating = resolved.AdjOffensiveEfficiency - resolved.AdjDefensiveEfficiency
		return resolved
	}
	return models.TeamEfficiencyMetric{
		OffensiveEfficiency:        profile.DefaultEfficiency,
		DefensiveEfficiency:        profile.DefaultEfficiency,
		Tempo:                      profile.AveragePace,
		AdjOffensiveEfficiency:     profile.DefaultEfficiency,
		AdjDefensiveEfficiency:     profile.DefaultEfficiency,
		AdjNetRating:               0,
		AdjTempo:                   profile.AveragePace,
		RollingOffensiveEfficiency: profile.DefaultEfficiency,
		RollingDefensiveEfficiency: profile.DefaultEfficiency,
	}
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
