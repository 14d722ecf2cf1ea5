package live

import (
	"testing"

	"github.com/jstittsworth/gridline/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func footballClock() config.LiveProfile {
	return config.LiveProfile{
		Family:             config.LiveFamilyFootball,
		SecondsPerPeriod:   900,
		RegulationPeriods:  4,
		OvertimeSeconds:    600,
		InProgressStatuses: []string{"in_progress", "halftime", "end_period"},
		MaxTotalFactor:     2.2,
		OvertimeTotalBump:  10,
	}
}

func nbaClock() config.LiveProfile {
	return config.LiveProfile{
		Family:             config.LiveFamilyBasketballAdvanced,
		SecondsPerPeriod:   720,
		RegulationPeriods:  4,
		OvertimeSeconds:    300,
		InProgressStatuses: []string{"in_progress", "halftime", "end_period"},
		MaxTotalFactor:     1.6,
		OvertimeTotalBump:  12,
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		clock   string
		want    int
		wantErr bool
	}{
		{"12:00", 720, false},
		{"0:34", 34, false},
		{"00:00", 0, false},
		{"", 0, false},
		{"  7:30 ", 450, false},
		{"12", 0, true},
		{"12:60", 0, true},
		{"-1:30", 0, true},
		{"ab:cd", 0, true},
		{"1:2:3", 0, true},
	}
	for _, tt := range tests {
		got, err := parseClock(tt.clock)
		if tt.wantErr {
			assert.Error(t, err, "clock %q", tt.clock)
			continue
		}
		require.NoError(t, err, "clock %q", tt.clock)
		assert.Equal(t, tt.want, got, "clock %q", tt.clock)
	}
}

func TestComputeClockRegulation(t *testing.T) {
	// Halfway through the 2nd quarter of an NFL game
	state, err := computeClock(footballClock(), 2, "7:30")
	require.NoError(t, err)

	assert.Equal(t, 450+2*900, state.SecondsRemaining)
	assert.Equal(t, 3600-2250, state.SecondsElapsed)
	assert.Equal(t, 3600, state.EffectiveLength)
	assert.InDelta(t, 1350.0/3600.0, state.ElapsedFraction, 1e-9)
	assert.Zero(t, state.OvertimePeriods)
}

func TestComputeClockEndOfRegulation(t *testing.T) {
	state, err := computeClock(footballClock(), 4, "")
	require.NoError(t, err)

	assert.Zero(t, state.SecondsRemaining)
	assert.Equal(t, 3600, state.SecondsElapsed)
	assert.Equal(t, 1.0, state.ElapsedFraction)
}

func TestComputeClockFootballOvertimeSaturates(t *testing.T) {
	state, err := computeClock(footballClock(), 5, "8:12")
	require.NoError(t, err)

	// Regulation-length families play OT at elapsed fraction 1
	assert.Equal(t, 1, state.OvertimePeriods)
	assert.Equal(t, 3600, state.EffectiveLength)
	assert.Equal(t, 1.0, state.ElapsedFraction)
	assert.Equal(t, 492, state.SecondsRemaining)
}

func TestComputeClockAdvancedOvertimeExtends(t *testing.T) {
	state, err := computeClock(nbaClock(), 5, "2:00")
	require.NoError(t, err)

	assert.Equal(t, 1, state.OvertimePeriods)
	assert.Equal(t, 4*720+300, state.EffectiveLength)
	assert.Equal(t, 4*720+300-120, state.SecondsElapsed)
	assert.Less(t, state.ElapsedFraction, 1.0)
	assert.Greater(t, state.ElapsedFraction, 0.9)
}

func TestComputeClockRejectsBadInput(t *testing.T) {
	_, err := computeClock(footballClock(), 0, "12:00")
	assert.Error(t, err)

	// Clock longer than a period during regulation
	_, err = computeClock(footballClock(), 1, "16:00")
	assert.Error(t, err)

	_, err = computeClock(footballClock(), 2, "bogus")
	assert.Error(t, err)
}
