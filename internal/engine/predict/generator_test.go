package predict

import (
	"encoding/json"
	"math"
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
		&models.TeamRating{},
		&models.PitcherRating{},
		&models.TeamEfficiencyMetric{},
		&models.Prediction{},
	))
	return &database.DB{DB: gdb}
}

func newGenerator(t *testing.T, db *database.DB, profile config.SportProfile) (*Generator, *storage.PredictionStore) {
	t.Helper()
	predictions := storage.NewPredictionStore(db)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	gen, err := NewGenerator(
		profile,
		storage.NewRatingStore(db),
		storage.NewMetricStore(db),
		storage.NewGameStore(db),
		predictions,
		log,
	)
	require.NoError(t, err)
	return gen, predictions
}

func seedRating(t *testing.T, db *database.DB, teamID uint, sport string, rating float64) {
	t.Helper()
	require.NoError(t, db.Create(&models.TeamRating{TeamID: teamID, Sport: sport, Rating: rating}).Error)
}

func scheduledGame(id, home, away uint, sport string) *models.Game {
	return &models.Game{
		ID:         id,
		Sport:      sport,
		Season:     "2025",
		Status:     models.GameStatusScheduled,
		HomeTeamID: home,
		AwayTeamID: away,
		GameDate:   time.Date(2025, 10, 19, 17, 0, 0, 0, time.UTC),
	}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestGenerateEloOnlySpread(t *testing.T) {
	db := newTestDB(t)
	profile := config.DefaultProfiles()["nfl"]
	gen, _ := newGenerator(t, db, profile)

	seedRating(t, db, 1, "nfl", 1540)
	seedRating(t, db, 2, "nfl", 1500)

	prediction, err := gen.Generate(scheduledGame(1, 1, 2, "nfl"))
	require.NoError(t, err)
	require.NotNil(t, prediction)

	// (1540 + 48 - 1500) / 25
	assert.InDelta(t, 3.52, prediction.PredictedSpread, 1e-9)
	assert.Equal(t, 1540.0, prediction.HomeElo)
	assert.Equal(t, 1500.0, prediction.AwayElo)

	wantProb := SpreadToProbability(3.52, profile.SpreadToProbabilityCoefficient)
	assert.InDelta(t, wantProb, prediction.WinProbability, 1e-4)
	wantConfidence := math.Round(math.Max(wantProb, 1-wantProb)*100*100) / 100
	assert.InDelta(t, wantConfidence, prediction.ConfidenceScore, 1e-9)

	var components map[string]float64
	require.NoError(t, json.Unmarshal(prediction.Components, &components))
	assert.InDelta(t, 3.52, components["elo"], 1e-9)
}

func TestGenerateIsDeterministicUpsert(t *testing.T) {
	db := newTestDB(t)
	gen, store := newGenerator(t, db, config.DefaultProfiles()["nfl"])

	seedRating(t, db, 1, "nfl", 1560)
	seedRating(t, db, 2, "nfl", 1480)
	game := scheduledGame(1, 1, 2, "nfl")

	first, err := gen.Generate(game)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := gen.Generate(game)
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, first.PredictedSpread, second.PredictedSpread)
	assert.Equal(t, first.PredictedTotal, second.PredictedTotal)
	assert.Equal(t, first.WinProbability, second.WinProbability)

	// One row per game, not one per run
	var count int64
	require.NoError(t, db.Model(&models.Prediction{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	stored, err := store.GetByGameID(game.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, first.PredictedSpread, stored.PredictedSpread)
}

func TestGenerateSkipsSettledAndUnresolvedGames(t *testing.T) {
	db := newTestDB(t)
	gen, _ := newGenerator(t, db, config.DefaultProfiles()["nfl"])

	finalGame := scheduledGame(1, 1, 2, "nfl")
	finalGame.Status = models.GameStatusFinal
	prediction, err := gen.Generate(finalGame)
	require.NoError(t, err)
	assert.Nil(t, prediction)

	unresolved := scheduledGame(2, 0, 2, "nfl")
	prediction, err = gen.Generate(unresolved)
	require.NoError(t, err)
	assert.Nil(t, prediction)

	prediction, err = gen.Generate(nil)
	require.NoError(t, err)
	assert.Nil(t, prediction)
}

func TestGenerateBlendsMarketLines(t *testing.T) {
	db := newTestDB(t)
	profile := config.DefaultProfiles()["nfl"]
	gen, _ := newGenerator(t, db, profile)

	seedRating(t, db, 1, "nfl", 1540)
	seedRating(t, db, 2, "nfl", 1500)

	game := scheduledGame(1, 1, 2, "nfl")
	// Bookmaker has home -3 with a 44.5 total
	game.Odds = &models.OddsData{Spread: floatPtr(-3), Total: floatPtr(44.5)}

	prediction, err := gen.Generate(game)
	require.NoError(t, err)
	require.NotNil(t, prediction)

	// Model says 3.52, market says 3.0, blended at market weight 0.30
	assert.InDelta(t, 0.7*3.52+0.3*3.0, prediction.PredictedSpread, 1e-9)
	// Model total for default metrics is the league base: 2 * 100 * 22 / 100 = 44
	assert.InDelta(t, 0.7*44.0+0.3*44.5, prediction.PredictedTotal, 1e-9)

	var components map[string]float64
	require.NoError(t, json.Unmarshal(prediction.Components, &components))
	assert.InDelta(t, 3.0, components["market"], 1e-9)
}

func TestGenerateEfficiencyBlendUsesMetrics(t *testing.T) {
	db := newTestDB(t)
	profile := config.DefaultProfiles()["nba"]
	gen, _ := newGenerator(t, db, profile)

	seedRating(t, db, 1, "nba", 1500)
	seedRating(t, db, 2, "nba", 1500)
	require.NoError(t, db.Create(&models.TeamEfficiencyMetric{
		TeamID: 1, Season: "2025", Sport: "nba",
		AdjOffensiveEfficiency: 116, AdjDefensiveEfficiency: 106,
		AdjNetRating: 10, AdjTempo: 100,
	}).Error)
	require.NoError(t, db.Create(&models.TeamEfficiencyMetric{
		TeamID: 2, Season: "2025", Sport: "nba",
		AdjOffensiveEfficiency: 106, AdjDefensiveEfficiency: 116,
		AdjNetRating: -10, AdjTempo: 100,
	}).Error)

	prediction, err := gen.Generate(scheduledGame(1, 1, 2, "nba"))
	require.NoError(t, err)
	require.NotNil(t, prediction)

	// Even Elo, but a 20 point adjusted-net gap favors home
	assert.Greater(t, prediction.PredictedSpread, 0.0)
	assert.Greater(t, prediction.WinProbability, 0.5)

	var components map[string]float64
	require.NoError(t, json.Unmarshal(prediction.Components, &components))
	for _, key := range []string{"elo", "efficiency", "recent_form", "venue_split", "rest", "turnover_margin", "rebound_margin"} {
		_, ok := components[key]
		assert.True(t, ok, "missing component %s", key)
	}
	assert.InDelta(t, 20.0*100/100, components["efficiency"], 1e-9)

	// Pace/efficiency total: both sides project to (116+116)/2 and (106+106)/2
	assert.InDelta(t, 100*(116+116)/2.0/100+100*(106+106)/2.0/100, prediction.PredictedTotal, 0.01)
}

func TestGeneratePitcherComponent(t *testing.T) {
	db := newTestDB(t)
	profile := config.DefaultProfiles()["mlb"]
	gen, _ := newGenerator(t, db, profile)

	seedRating(t, db, 1, "mlb", 1500)
	seedRating(t, db, 2, "mlb", 1500)
	require.NoError(t, db.Create(&models.PitcherRating{PitcherID: 100, Rating: 1610}).Error)

	game := scheduledGame(1, 1, 2, "mlb")
	game.HomePitcherID = uintPtr(100)
	// Away starter unknown, falls back to the default rating

	prediction, err := gen.Generate(game)
	require.NoError(t, err)
	require.NotNil(t, prediction)

	var components map[string]float64
	require.NoError(t, json.Unmarshal(prediction.Components, &components))
	// (1610 - 1500) / 220
	assert.InDelta(t, 0.5, components["pitcher"], 1e-9)
	assert.InDelta(t, components["elo"]+components["pitcher"], prediction.PredictedSpread, 0.005)
}

func uintPtr(v uint) *uint { return &v }
