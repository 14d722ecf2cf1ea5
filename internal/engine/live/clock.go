package live

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jstittsworth/gridline/pkg/config"
)

// ClockState is the time accounting derived from a game's period and clock
// string, in the units the blending formulas need.
type ClockState struct {
	SecondsElapsed   int
	SecondsRemaining int
	EffectiveLength  int
	ElapsedFraction  float64
	OvertimePeriods  int
}

// parseClock turns a "MM:SS" game clock into seconds remaining in the current
// period. An empty clock means the period is over; anything else malformed is an
// error the updater treats as a no-op.
func parseClock(clock string) (int, error) {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return 0, nil
	}
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed game clock %q", clock)
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || minutes < 0 {
		return 0, fmt.Errorf("malformed game clock %q", clock)
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("malformed game clock %q", clock)
	}
	return minutes*60 + seconds, nil
}

// computeClock resolves elapsed/remaining time for the sport's clock family.
// Regulation math is shared; the families differ in how overtime stretches (or
// does not stretch) the effective game length.
func computeClock(live config.LiveProfile, period int, clock string) (*ClockState, error) {
	if period < 1 {
		return nil, fmt.Errorf("game has no active period")
	}

	inPeriod, err := parseClock(clock)
	if err != nil {
		return nil, err
	}
	if inPeriod > live.SecondsPerPeriod && period <= live.RegulationPeriods {
		return nil, fmt.Errorf("game clock exceeds period length")
	}

	regulation := live.RegulationSeconds()
	state := &ClockState{EffectiveLength: regulation}

	if period <= live.RegulationPeriods {
		state.SecondsRemaining = inPeriod + (live.RegulationPeriods-period)*live.SecondsPerPeriod
		state.SecondsElapsed = regulation - state.SecondsRemaining
	} else {
		state.OvertimePeriods = period - live.RegulationPeriods
		state.SecondsRemaining = inPeriod
		if live.Family == config.LiveFamilyBasketballAdvanced {
			// Overtime extends the effective game for time-fraction math
			state.EffectiveLength = regulation + state.OvertimePeriods*live.OvertimeSeconds
			state.SecondsElapsed = state.EffectiveLength - inPeriod
		} else {
			// Regulation-length families saturate: overtime plays out at
			// elapsed fraction 1
			state.SecondsElapsed = regulation
		}
	}

	if state.EffectiveLength > 0 {
		state.ElapsedFraction = float64(state.SecondsElapsed) / float64(state.EffectiveLength)
	}
	if state.ElapsedFraction < 0 {
		state.ElapsedFraction = 0
	}
	if state.ElapsedFraction > 1 {
		state.ElapsedFraction = 1
	}

	return state, nil
}
