package adjust

import "math"

// TeamState is one team's working offense/defense/tempo values during iteration.
type TeamState struct {
	Offense float64
	Defense float64
	Tempo   float64
}

// Snapshot is the immutable per-iteration state of the adjustment. Each step reads
// one snapshot and produces the next, which keeps convergence inspectable.
type Snapshot struct {
	Teams map[uint]TeamState
}

// gameSample is one team's raw per-game input derived from its stat line. Lines
// with zero possessions never become samples.
type gameSample struct {
	OpponentID uint
	Offense    float64
	Defense    float64
	Tempo      float64
}

// NewSnapshot seeds the working state from the teams' raw season values.
func NewSnapshot(states map[uint]TeamState) Snapshot {
	teams := make(map[uint]TeamState, len(states))
	for id, st := range states {
		teams[id] = st
	}
	return Snapshot{Teams: teams}
}

// LeagueAverages returns the mean offense, defense and tempo over all teams.
func (s Snapshot) LeagueAverages() (offense, defense, tempo float64) {
	if len(s.Teams) == 0 {
		return 0, 0, 0
	}
	for _, st := range s.Teams {
		offense += st.Offense
		defense += st.Defense
		tempo += st.Tempo
	}
	n := float64(len(s.Teams))
	return offense / n, defense / n, tempo / n
}

// Step runs one damped iteration against the previous snapshot and returns the
// next snapshot plus the maximum absolute change across all teams and metrics.
// Every opponent value is read from the previous snapshot, so the result does not
// depend on team processing order.
func (s Snapshot) Step(samples map[uint][]gameSample, damping float64) (Snapshot, float64) {
	avgOff, avgDef, avgTempo := s.LeagueAverages()

	next := make(map[uint]TeamState, len(s.Teams))
	maxChange := 0.0

	for teamID, prev := range s.Teams {
		var sumOff, sumDef, sumTempo float64
		qualifying := 0

		for _, sample := range samples[teamID] {
			opponent, ok := s.Teams[sample.OpponentID]
			if !ok {
				continue
			}
			if opponent.Defense <= 0 || opponent.Offense <= 0 || opponent.Tempo <= 0 {
				continue
			}
			sumOff += sample.Offense * (avgDef / opponent.Defense)
			sumDef += sample.Defense * (avgOff / opponent.Offense)
			sumTempo += sample.Tempo * (avgTempo / opponent.Tempo)
			qualifying++
		}

		// A team with no qualifying games this round keeps its previous value.
		if qualifying == 0 {
			next[teamID] = prev
			continue
		}

		n := float64(qualifying)
		target := TeamState{
			Offense: sumOff / n,
			Defense: sumDef / n,
			Tempo:   sumTempo / n,
		}

		updated := TeamState{
			Offense: prev.Offense + damping*(target.Offense-prev.Offense),
			Defense: prev.Defense + damping*(target.Defense-prev.Defense),
			Tempo:   prev.Tempo + damping*(target.Tempo-prev.Tempo),
		}
		next[teamID] = updated

		maxChange = math.Max(maxChange, math.Abs(updated.Offense-prev.Offense))
		maxChange = math.Max(maxChange, math.Abs(updated.Defense-prev.Defense))
		maxChange = math.Max(maxChange, math.Abs(updated.Tempo-prev.Tempo))
	}

	return Snapshot{Teams: next}, maxChange
}

// Normalize rescales every team so the league average of each metric equals the
// baseline. Keeps adjusted ratings comparable across seasons regardless of the
// scoring environment.
func (s Snapshot) Normalize(baseline float64) Snapshot {
	avgOff, avgDef, avgTempo := s.LeagueAverages()
	if avgOff <= 0 || avgDef <= 0 || avgTempo <= 0 {
		return s
	}

	offScale := baseline / avgOff
	defScale := baseline / avgDef
	tempoScale := baseline / avgTempo

	next := make(map[uint]TeamState, len(s.Teams))
	for teamID, st := range s.Teams {
		next[teamID] = TeamState{
			Offense: st.Offense * offScale,
			Defense: st.Defense * defScale,
			Tempo:   st.Tempo * tempoScale,
		}
	}
	return Snapshot{Teams: next}
}
