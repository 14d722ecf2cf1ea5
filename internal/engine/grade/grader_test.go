package grade

import (
	"testing"
	"time"

	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/internal/storage"
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
	require.NoError(t, gdb.AutoMigrate(&models.Game{}, &models.Prediction{}))
	return &database.DB{DB: gdb}
}

func newGrader(t *testing.T, db *database.DB) (*Grader, *storage.PredictionStore) {
	t.Helper()
	predictions := storage.NewPredictionStore(db)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	grader := NewGrader(predictions, storage.NewGameStore(db), log)
	grader.now = func() time.Time {
		return time.Date(2025, 10, 20, 6, 0, 0, 0, time.UTC)
	}
	return grader, predictions
}

func intPtr(v int) *int { return &v }

func seedFinalGame(t *testing.T, db *database.DB, id uint, home, away int) {
	t.Helper()
	require.NoError(t, db.Create(&models.Game{
		ID:         id,
		Sport:      "nfl",
		Season:     "2025",
		Status:     models.GameStatusFinal,
		HomeTeamID: 1,
		AwayTeamID: 2,
		HomeScore:  intPtr(home),
		AwayScore:  intPtr(away),
		GameDate:   time.Date(2025, 10, 19, 17, 0, 0, 0, time.UTC),
	}).Error)
}

func seedPrediction(t *testing.T, db *database.DB, gameID uint, spread, total float64) {
	t.Helper()
	require.NoError(t, db.Create(&models.Prediction{
		GameID:          gameID,
		Sport:           "nfl",
		Season:          "2025",
		PredictedSpread: spread,
		PredictedTotal:  total,
		WinProbability:  0.55,
	}).Error)
}

func TestGradeSettlesFinalGames(t *testing.T) {
	db := newTestDB(t)
	grader, store := newGrader(t, db)

	seedFinalGame(t, db, 1, 27, 20)
	seedPrediction(t, db, 1, 3.5, 44)

	summary, err := grader.Grade("nfl", "2025")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Graded)
	assert.Zero(t, summary.Skipped)
	assert.Equal(t, 100.0, summary.WinnerAccuracy)
	assert.InDelta(t, 3.5, summary.MeanSpreadError, 1e-9)
	assert.InDelta(t, 3.0, summary.MeanTotalError, 1e-9)

	graded, err := store.GetByGameID(1)
	require.NoError(t, err)
	require.True(t, graded.IsGraded())
	assert.Equal(t, 7.0, *graded.ActualSpread)
	assert.Equal(t, 47.0, *graded.ActualTotal)
	assert.InDelta(t, 3.5, *graded.SpreadError, 1e-9)
	assert.InDelta(t, 3.0, *graded.TotalError, 1e-9)
	require.NotNil(t, graded.WinnerCorrect)
	assert.True(t, *graded.WinnerCorrect)
}

func TestGradeIsAtMostOnce(t *testing.T) {
	db := newTestDB(t)
	grader, store := newGrader(t, db)

	seedFinalGame(t, db, 1, 27, 20)
	seedPrediction(t, db, 1, 3.5, 44)

	first, err := grader.Grade("nfl", "2025")
	require.NoError(t, err)
	require.Equal(t, 1, first.Graded)

	before, err := store.GetByGameID(1)
	require.NoError(t, err)

	// Second run finds nothing ungraded and changes nothing
	second, err := grader.Grade("nfl", "2025")
	require.NoError(t, err)
	assert.Zero(t, second.Graded)
	assert.Zero(t, second.Skipped)

	after, err := store.GetByGameID(1)
	require.NoError(t, err)
	assert.Equal(t, *before.GradedAt, *after.GradedAt)
	assert.Equal(t, *before.SpreadError, *after.SpreadError)
}

func TestGradeWinnerSignConventions(t *testing.T) {
	tests := []struct {
		name        string
		spread      float64
		home, away  int
		wantCorrect bool
	}{
		{"home pick home win", 3.5, 24, 20, true},
		{"home pick away win", 3.5, 20, 24, false},
		{"away pick away win", -3.5, 20, 24, true},
		{"away pick home win", -3.5, 24, 20, false},
		{"tie is never correct", 3.5, 21, 21, false},
		{"zero spread pick never correct", 0, 24, 20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			grader, store := newGrader(t, db)

			seedFinalGame(t, db, 1, tt.home, tt.away)
			seedPrediction(t, db, 1, tt.spread, 44)

			summary, err := grader.Grade("nfl", "2025")
			require.NoError(t, err)
			require.Equal(t, 1, summary.Graded)

			graded, err := store.GetByGameID(1)
			require.NoError(t, err)
			require.NotNil(t, graded.WinnerCorrect)
			assert.Equal(t, tt.wantCorrect, *graded.WinnerCorrect)
		})
	}
}

func TestGradeIgnoresUnfinishedGames(t *testing.T) {
	db := newTestDB(t)
	grader, store := newGrader(t, db)

	require.NoError(t, db.Create(&models.Game{
		ID:         1,
		Sport:      "nfl",
		Season:     "2025",
		Status:     models.GameStatusInProgress,
		HomeTeamID: 1,
		AwayTeamID: 2,
		HomeScore:  intPtr(14),
		AwayScore:  intPtr(10),
	}).Error)
	seedPrediction(t, db, 1, 3.5, 44)

	summary, err := grader.Grade("nfl", "2025")
	require.NoError(t, err)
	assert.Zero(t, summary.Graded)

	prediction, err := store.GetByGameID(1)
	require.NoError(t, err)
	assert.False(t, prediction.IsGraded())
}

func TestAccuracyAggregatesGradedRows(t *testing.T) {
	db := newTestDB(t)
	grader, _ := newGrader(t, db)

	seedFinalGame(t, db, 1, 27, 20) // home by 7, prediction +3.5: hit
	seedPrediction(t, db, 1, 3.5, 44)
	seedFinalGame(t, db, 2, 17, 31) // away by 14, prediction +2.5: miss
	seedPrediction(t, db, 2, 2.5, 48)

	_, err := grader.Grade("nfl", "2025")
	require.NoError(t, err)

	accuracy, err := grader.Accuracy("nfl", "2025")
	require.NoError(t, err)
	assert.Equal(t, 2, accuracy.Graded)
	assert.Equal(t, 50.0, accuracy.WinnerAccuracy)
	assert.InDelta(t, (3.5+16.5)/2, accuracy.MeanSpreadError, 1e-9)
	assert.InDelta(t, (3.0+0.0)/2, accuracy.MeanTotalError, 1e-9)

	empty, err := grader.Accuracy("nfl", "2030")
	require.NoError(t, err)
	assert.Zero(t, empty.Graded)
	assert.Zero(t, empty.WinnerAccuracy)
}
