package adjust

import (
	"fmt"

	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/internal/storage"
	"github.com/jstittsworth/gridline/pkg/config"
	"github.com/sirupsen/logrus"
)

// Calculator removes opponent-strength bias from raw efficiency metrics via damped
// fixed-point iteration, then renormalizes to the configured baseline. One run
// recomputes a whole (sport, season); callers must serialize runs per season.
type Calculator struct {
	profile config.SportProfile
	metrics *storage.MetricStore
	games   *storage.GameStore
	logger  *logrus.Logger
}

// RunResult summarizes one adjustment run.
type RunResult struct {
	Teams      int  `json:"teams"`
	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`
}

func NewCalculator(profile config.SportProfile, metrics *storage.MetricStore, games *storage.GameStore, logger *logrus.Logger) (*Calculator, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("opponent adjustment calculator: %w", err)
	}
	return &Calculator{
		profile: profile,
		metrics: metrics,
		games:   games,
		logger:  logger,
	}, nil
}

// Calculate recomputes adjusted metrics for every team with a metrics row this
// season. An empty season is a no-op; hitting the iteration cap is accepted as
// best effort, not an error.
func (c *Calculator) Calculate(sport, season string) (*RunResult, error) {
	metrics, err := c.metrics.ListSeasonMetrics(sport, season)
	if err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		return &RunResult{}, nil
	}

	lines, err := c.games.ListSeasonStatLines(sport, season)
	if err != nil {
		return nil, err
	}

	samples := buildSamples(lines, c.profile.PossessionCoefficient)

	states := make(map[uint]TeamState, len(metrics))
	for _, m := range metrics {
		states[m.TeamID] = TeamState{
			Offense: m.OffensiveEfficiency,
			Defense: m.DefensiveEfficiency,
			Tempo:   m.Tempo,
		}
	}
	snapshot := NewSnapshot(states)

	iterations := 0
	converged := false
	for iterations < c.profile.MaxAdjustmentIterations {
		next, maxChange := snapshot.Step(samples, c.profile.DampingFactor)
		snapshot = next
		iterations++
		if maxChange < c.profile.ConvergenceThreshold {
			converged = true
			break
		}
	}

	snapshot = snapshot.Normalize(c.profile.NormalizationBaseline)

	rolling := c.rollingEfficiencies(lines)
	splits := venueSplits(lines, c.profile.PossessionCoefficient)

	for i := range metrics {
		m := &metrics[i]
		st, ok := snapshot.Teams[m.TeamID]
		if !ok {
			continue
		}
		m.AdjOffensiveEfficiency = st.Offense
		m.AdjDefensiveEfficiency = st.Defense
		m.AdjNetRating = st.Offense - st.Defense
		m.AdjTempo = st.Tempo
		m.AdjustmentIterations = iterations
		m.AdjustmentConverged = converged

		if r, ok := rolling[m.TeamID]; ok {
			m.RollingOffensiveEfficiency = r.Offense
			m.RollingDefensiveEfficiency = r.Defense
		}
		if sp, ok := splits[m.TeamID]; ok {
			m.HomeOffensiveEfficiency = sp.HomeOffense
			m.HomeDefensiveEfficiency = sp.HomeDefense
			m.AwayOffensiveEfficiency = sp.AwayOffense
			m.AwayDefensiveEfficiency = sp.AwayDefense
		}
	}

	if err := c.metrics.SaveAdjustedMetrics(metrics); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"sport":      sport,
		"season":     season,
		"teams":      len(metrics),
		"iterations": iterations,
		"converged":  converged,
	}).Info("Opponent adjustment run completed")

	return &RunResult{
		Teams:      len(metrics),
		Iterations: iterations,
		Converged:  converged,
	}, nil
}

// buildSamples turns stat lines into per-team game samples. Lines with no
// possession count and nothing to estimate one from carry no usable rate and are
// excluded up front.
func buildSamples(lines []models.TeamStatLine, coefficient float64) map[uint][]gameSample {
	samples := make(map[uint][]gameSample)
	for i := range lines {
		line := &lines[i]
		poss := line.EffectivePossessions(coefficient)
		if poss <= 0 {
			continue
		}
		samples[line.TeamID] = append(samples[line.TeamID], gameSample{
			OpponentID: line.OpponentID,
			Offense:    line.OffensiveEfficiency(coefficient),
			Defense:    line.DefensiveEfficiency(coefficient),
			Tempo:      poss,
		})
	}
	return samples
}

type rollingState struct {
	Offense float64
	Defense float64
}

// rollingEfficiencies computes exponentially weighted raw efficiencies, newest
// game heaviest. Lines arrive date-ascending from the store.
func (c *Calculator) rollingEfficiencies(lines []models.TeamStatLine) map[uint]rollingState {
	decay := c.profile.RollingDecay
	if decay <= 0 || decay >= 1 {
		decay = 0.85
	}
	coefficient := c.profile.PossessionCoefficient

	type acc struct {
		off, def, weight float64
	}
	byTeam := make(map[uint][]models.TeamStatLine)
	for i := range lines {
		if lines[i].EffectivePossessions(coefficient) <= 0 {
			continue
		}
		byTeam[lines[i].TeamID] = append(byTeam[lines[i].TeamID], lines[i])
	}

	out := make(map[uint]rollingState, len(byTeam))
	for teamID, teamLines := range byTeam {
		var a acc
		weight := 1.0
		// Walk newest to oldest so the most recent game has weight 1
		for i := len(teamLines) - 1; i >= 0; i-- {
			a.off += teamLines[i].OffensiveEfficiency(coefficient) * weight
			a.def += teamLines[i].DefensiveEfficiency(coefficient) * weight
			a.weight += weight
			weight *= decay
		}
		if a.weight > 0 {
			out[teamID] = rollingState{Offense: a.off / a.weight, Defense: a.def / a.weight}
		}
	}
	return out
}

type splitState struct {
	HomeOffense float64
	HomeDefense float64
	AwayOffense float64
	AwayDefense float64
}

// venueSplits averages raw efficiency separately for home and away games.
func venueSplits(lines []models.TeamStatLine, coefficient float64) map[uint]splitState {
	type acc struct {
		homeOff, homeDef float64
		awayOff, awayDef float64
		home, away       int
	}
	accs := make(map[uint]*acc)
	for i := range lines {
		line := &lines[i]
		if line.EffectivePossessions(coefficient) <= 0 {
			continue
		}
		a, ok := accs[line.TeamID]
		if !ok {
			a = &acc{}
			accs[line.TeamID] = a
		}
		if line.IsHome {
			a.homeOff += line.OffensiveEfficiency(coefficient)
			a.homeDef += line.DefensiveEfficiency(coefficient)
			a.home++
		} else {
			a.awayOff += line.OffensiveEfficiency(coefficient)
			a.awayDef += line.DefensiveEfficiency(coefficient)
			a.away++
		}
	}

	out := make(map[uint]splitState, len(accs))
	for teamID, a := range accs {
		st := splitState{}
		if a.home > 0 {
			st.HomeOffense = a.homeOff / float64(a.home)
			st.HomeDefense = a.homeDef / float64(a.home)
		}
		if a.away > 0 {
			st.AwayOffense = a.awayOff / float64(a.away)
			st.AwayDefense = a.awayDef / float64(a.away)
		}
		out[teamID] = st
	}
	return out
}
