package predict

import (
	"testing"

	"github.com/jstittsworth/gridline/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpliedProbability(t *testing.T) {
	tests := []struct {
		odds int
		want float64
	}{
		{+100, 0.5},
		{+150, 0.4},
		{+400, 0.2},
		{-110, 110.0 / 210.0},
		{-150, 0.6},
		{-400, 0.8},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ImpliedProbability(tt.odds), 1e-9, "odds %d", tt.odds)
	}
}

func TestSpreadProbabilityRoundTrip(t *testing.T) {
	for _, spread := range []float64{-21, -7.5, -3, 0, 2.5, 7, 14} {
		p := SpreadToProbability(spread, 8.2)
		assert.InDelta(t, spread, ProbabilityToSpread(p, 8.2), 1e-9)
	}

	// Zero spread is a coin flip
	assert.InDelta(t, 0.5, SpreadToProbability(0, 8.2), 1e-9)
	// Extreme probabilities stay finite
	assert.False(t, ProbabilityToSpread(0, 8.2) < -1e6)
	assert.False(t, ProbabilityToSpread(1, 8.2) > 1e6)
}

func TestMarketSpreadFromPostedLine(t *testing.T) {
	// A posted -3 home handicap means home favored by 3
	odds := &models.OddsData{Spread: floatPtr(-3)}
	got := marketSpread(odds, 8.2)
	require.NotNil(t, got)
	assert.InDelta(t, 3.0, *got, 1e-9)
}

func TestMarketSpreadFromMoneylines(t *testing.T) {
	// Symmetric juice renormalizes to a true coin flip
	odds := &models.OddsData{HomeMoneyline: intPtr(-110), AwayMoneyline: intPtr(-110)}
	got := marketSpread(odds, 8.2)
	require.NotNil(t, got)
	assert.InDelta(t, 0.0, *got, 1e-9)

	// A home favorite produces a positive home-perspective spread
	odds = &models.OddsData{HomeMoneyline: intPtr(-200), AwayMoneyline: intPtr(+170)}
	got = marketSpread(odds, 8.2)
	require.NotNil(t, got)
	assert.Greater(t, *got, 0.0)
}

func TestMarketSpreadMissingData(t *testing.T) {
	assert.Nil(t, marketSpread(nil, 8.2))
	assert.Nil(t, marketSpread(&models.OddsData{}, 8.2))
	assert.Nil(t, marketSpread(&models.OddsData{HomeMoneyline: intPtr(-110)}, 8.2))
}

func TestMarketTotal(t *testing.T) {
	assert.Nil(t, marketTotal(nil))
	assert.Nil(t, marketTotal(&models.OddsData{}))

	got := marketTotal(&models.OddsData{Total: floatPtr(224.5)})
	require.NotNil(t, got)
	assert.Equal(t, 224.5, *got)
}
