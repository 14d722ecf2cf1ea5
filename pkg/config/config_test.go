package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSportsParsesCommaSeparatedList(t *testing.T) {
	cfg := &Config{SupportedSports: "nfl, nba ,ncaab,,mlb"}
	assert.Equal(t, []string{"nfl", "nba", "ncaab", "mlb"}, cfg.Sports())

	cfg = &Config{SupportedSports: ""}
	assert.Empty(t, cfg.Sports())
}

func TestEnvironmentHelpers(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
}
