package adjust

import (
	"testing"
	"time"

	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/internal/storage"
	"github.com/jstittsworth/gridline/pkg/config"
	"github.com/jstittsworth/gridline/pkg/database"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.Game{},
		&models.TeamStatLine{},
		&models.TeamEfficiencyMetric{},
		&models.RatingHistoryEntry{},
	))
	return &database.DB{DB: gdb}
}

func testProfile() config.SportProfile {
	profile := config.DefaultProfiles()["nba"]
	return profile
}

func newCalculator(t *testing.T, db *database.DB) (*Calculator, *storage.MetricStore) {
	t.Helper()
	metrics := storage.NewMetricStore(db)
	games := storage.NewGameStore(db)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	calc, err := NewCalculator(testProfile(), metrics, games, log)
	require.NoError(t, err)
	return calc, metrics
}

func seedGame(t *testing.T, db *database.DB, id, home, away uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Game{
		ID:         id,
		Sport:      "nba",
		Season:     "2025",
		Status:     models.GameStatusFinal,
		HomeTeamID: home,
		AwayTeamID: away,
		GameDate:   time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * 24 * time.Hour),
	}).Error)
}

func seedStatLine(t *testing.T, db *database.DB, gameID, teamID, oppID uint, points, allowed int, poss float64, isHome bool) {
	t.Helper()
	require.NoError(t, db.Create(&models.TeamStatLine{
		GameID:        gameID,
		TeamID:        teamID,
		OpponentID:    oppID,
		Season:        "2025",
		GameDate:      time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(gameID) * 24 * time.Hour),
		IsHome:        isHome,
		Points:        points,
		PointsAllowed: allowed,
		Possessions:   poss,
	}).Error)
}

func seedMetric(t *testing.T, db *database.DB, teamID uint, off, def, tempo float64) {
	t.Helper()
	require.NoError(t, db.Create(&models.TeamEfficiencyMetric{
		TeamID:              teamID,
		Season:              "2025",
		Sport:               "nba",
		OffensiveEfficiency: off,
		DefensiveEfficiency: def,
		Tempo:               tempo,
		GamesPlayed:         2,
	}).Error)
}

func TestCalculateEmptySeasonIsNoOp(t *testing.T) {
	db := newTestDB(t)
	calc, _ := newCalculator(t, db)

	result, err := calc.Calculate("nba", "2025")
	require.NoError(t, err)
	assert.Zero(t, result.Teams)
	assert.Zero(t, result.Iterations)
	assert.False(t, result.Converged)
}

func TestCalculateNormalizesToBaseline(t *testing.T) {
	db := newTestDB(t)
	calc, store := newCalculator(t, db)

	// Three teams in a round robin with distinctly different raw levels
	seedMetric(t, db, 1, 118, 105, 101)
	seedMetric(t, db, 2, 110, 110, 99)
	seedMetric(t, db, 3, 102, 115, 97)

	seedGame(t, db, 1, 1, 2)
	seedStatLine(t, db, 1, 1, 2, 118, 105, 100, true)
	seedStatLine(t, db, 1, 2, 1, 105, 118, 100, false)
	seedGame(t, db, 2, 2, 3)
	seedStatLine(t, db, 2, 2, 3, 115, 100, 98, true)
	seedStatLine(t, db, 2, 3, 2, 100, 115, 98, false)
	seedGame(t, db, 3, 3, 1)
	seedStatLine(t, db, 3, 3, 1, 104, 118, 96, true)
	seedStatLine(t, db, 3, 1, 3, 118, 104, 96, false)

	result, err := calc.Calculate("nba", "2025")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Teams)
	assert.Greater(t, result.Iterations, 0)

	metrics, err := store.ListSeasonMetrics("nba", "2025")
	require.NoError(t, err)
	require.Len(t, metrics, 3)

	var sumOff, sumDef, sumTempo float64
	for _, m := range metrics {
		sumOff += m.AdjOffensiveEfficiency
		sumDef += m.AdjDefensiveEfficiency
		sumTempo += m.AdjTempo
		assert.Equal(t, result.Iterations, m.AdjustmentIterations)
		assert.Equal(t, result.Converged, m.AdjustmentConverged)
		assert.InDelta(t, m.AdjOffensiveEfficiency-m.AdjDefensiveEfficiency, m.AdjNetRating, 1e-9)
		require.NotNil(t, m.AdjustedAt)
	}

	// League averages land exactly on the configured baseline of 100
	assert.InDelta(t, 100.0, sumOff/3, 1e-6)
	assert.InDelta(t, 100.0, sumDef/3, 1e-6)
	assert.InDelta(t, 100.0, sumTempo/3, 1e-6)

	// The strongest raw offense stays the strongest adjusted offense
	byTeam := make(map[uint]models.TeamEfficiencyMetric)
	for _, m := range metrics {
		byTeam[m.TeamID] = m
	}
	assert.Greater(t, byTeam[1].AdjOffensiveEfficiency, byTeam[3].AdjOffensiveEfficiency)
}

func TestCalculateTerminatesWithinIterationCap(t *testing.T) {
	db := newTestDB(t)
	calc, _ := newCalculator(t, db)

	seedMetric(t, db, 1, 120, 95, 102)
	seedMetric(t, db, 2, 95, 120, 96)
	seedGame(t, db, 1, 1, 2)
	seedStatLine(t, db, 1, 1, 2, 120, 95, 100, true)
	seedStatLine(t, db, 1, 2, 1, 95, 120, 100, false)

	result, err := calc.Calculate("nba", "2025")
	require.NoError(t, err)
	assert.LessOrEqual(t, result.Iterations, testProfile().MaxAdjustmentIterations)
}

func TestCalculateExcludesZeroPossessionLines(t *testing.T) {
	db := newTestDB(t)
	calc, store := newCalculator(t, db)

	seedMetric(t, db, 1, 110, 105, 100)
	seedMetric(t, db, 2, 105, 110, 100)
	seedGame(t, db, 1, 1, 2)
	// One real game plus a corrupt line with no possessions
	seedStatLine(t, db, 1, 1, 2, 110, 105, 100, true)
	seedStatLine(t, db, 1, 2, 1, 105, 110, 100, false)
	seedGame(t, db, 2, 1, 2)
	seedStatLine(t, db, 2, 1, 2, 40, 200, 0, true)
	seedStatLine(t, db, 2, 2, 1, 200, 40, 0, false)

	_, err := calc.Calculate("nba", "2025")
	require.NoError(t, err)

	metric, err := store.GetMetric(1, "2025")
	require.NoError(t, err)
	require.NotNil(t, metric)
	// The corrupt blowout never pulls the adjusted values toward it
	assert.Greater(t, metric.AdjOffensiveEfficiency, metric.AdjDefensiveEfficiency)
	assert.InDelta(t, 100.0, metric.AdjTempo, 5.0)
}

func TestCalculateEstimatesPossessionsFromFieldGoals(t *testing.T) {
	db := newTestDB(t)
	calc, store := newCalculator(t, db)

	seedMetric(t, db, 1, 110, 105, 100)
	seedMetric(t, db, 2, 105, 110, 100)
	seedGame(t, db, 1, 1, 2)

	// Ingestion omitted possessions but carried the box-score fields they can
	// be estimated from
	seedLine := func(teamID, oppID uint, points, allowed int, isHome bool) {
		require.NoError(t, db.Create(&models.TeamStatLine{
			GameID:        1,
			TeamID:        teamID,
			OpponentID:    oppID,
			Season:        "2025",
			GameDate:      time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC),
			IsHome:        isHome,
			Points:        points,
			PointsAllowed: allowed,
			FieldGoalsAtt: 90,
			Turnovers:     14,
		}).Error)
	}
	seedLine(1, 2, 110, 105, true)
	seedLine(2, 1, 105, 110, false)

	_, err := calc.Calculate("nba", "2025")
	require.NoError(t, err)

	metric, err := store.GetMetric(1, "2025")
	require.NoError(t, err)
	require.NotNil(t, metric)

	// The nba coefficient 0.96 gives 0.96*(90+14) = 99.84 estimated possessions
	estimated := 0.96 * float64(90+14)
	assert.InDelta(t, 110.0/estimated*100, metric.HomeOffensiveEfficiency, 1e-9)
	assert.InDelta(t, 110.0/estimated*100, metric.RollingOffensiveEfficiency, 1e-9)
	// Both teams share the estimate, so the normalized league tempo is exact
	assert.InDelta(t, 100.0, metric.AdjTempo, 1e-6)
}

func TestCalculateWritesRollingAndVenueSplits(t *testing.T) {
	db := newTestDB(t)
	calc, store := newCalculator(t, db)

	seedMetric(t, db, 1, 110, 105, 100)
	seedMetric(t, db, 2, 105, 110, 100)
	seedGame(t, db, 1, 1, 2)
	seedStatLine(t, db, 1, 1, 2, 100, 105, 100, true)
	seedStatLine(t, db, 1, 2, 1, 105, 100, 100, false)
	seedGame(t, db, 2, 2, 1)
	seedStatLine(t, db, 2, 1, 2, 120, 105, 100, false)
	seedStatLine(t, db, 2, 2, 1, 105, 120, 100, true)

	_, err := calc.Calculate("nba", "2025")
	require.NoError(t, err)

	metric, err := store.GetMetric(1, "2025")
	require.NoError(t, err)
	require.NotNil(t, metric)

	// Rolling average is decay-weighted toward the newer 120 game, so it sits
	// above the plain mean of 110
	assert.Greater(t, metric.RollingOffensiveEfficiency, 110.0)
	assert.Equal(t, 100.0, metric.HomeOffensiveEfficiency)
	assert.Equal(t, 120.0, metric.AwayOffensiveEfficiency)
	assert.Equal(t, 105.0, metric.HomeDefensiveEfficiency)
	assert.Equal(t, 105.0, metric.AwayDefensiveEfficiency)
}

func TestStepIsOrderIndependentAndDamped(t *testing.T) {
	snapshot := NewSnapshot(map[uint]TeamState{
		1: {Offense: 110, Defense: 100, Tempo: 100},
		2: {Offense: 100, Defense: 110, Tempo: 100},
	})
	samples := map[uint][]gameSample{
		1: {{OpponentID: 2, Offense: 110, Defense: 100, Tempo: 100}},
		2: {{OpponentID: 1, Offense: 100, Defense: 110, Tempo: 100}},
	}

	next, maxChange := snapshot.Step(samples, 0.5)
	require.Len(t, next.Teams, 2)
	assert.Greater(t, maxChange, 0.0)

	// League avgDef = 105, so team 1's target offense is 110*(105/110) = 105 and
	// half the move is applied
	assert.InDelta(t, 107.5, next.Teams[1].Offense, 1e-9)
	// The previous snapshot is intact
	assert.Equal(t, 110.0, snapshot.Teams[1].Offense)
}

func TestStepKeepsTeamsWithoutQualifyingGames(t *testing.T) {
	snapshot := NewSnapshot(map[uint]TeamState{
		1: {Offense: 110, Defense: 100, Tempo: 100},
		2: {Offense: 104, Defense: 106, Tempo: 98},
	})
	// Team 2 has no samples at all
	samples := map[uint][]gameSample{
		1: {{OpponentID: 2, Offense: 110, Defense: 100, Tempo: 100}},
	}

	next, _ := snapshot.Step(samples, 0.5)
	assert.Equal(t, TeamState{Offense: 104, Defense: 106, Tempo: 98}, next.Teams[2])
}

func TestNormalizeRescalesLeagueAverages(t *testing.T) {
	snapshot := NewSnapshot(map[uint]TeamState{
		1: {Offense: 120, Defense: 90, Tempo: 105},
		2: {Offense: 100, Defense: 110, Tempo: 95},
	})

	normalized := snapshot.Normalize(100)
	avgOff, avgDef, avgTempo := normalized.LeagueAverages()
	assert.InDelta(t, 100.0, avgOff, 1e-9)
	assert.InDelta(t, 100.0, avgDef, 1e-9)
	assert.InDelta(t, 100.0, avgTempo, 1e-9)

	// Relative ordering survives the rescale
	assert.Greater(t, normalized.Teams[1].Offense, normalized.Teams[2].Offense)
}
