package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/pkg/config"
	"github.com/jstittsworth/gridline/pkg/database"
	"github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	// Auto migrate all models
	if err := db.AutoMigrate(
		&models.Team{},
		&models.TeamRating{},
		&models.RatingHistoryEntry{},
		&models.PitcherRating{},
		&models.PitcherRatingHistoryEntry{},
		&models.Game{},
		&models.TeamStatLine{},
		&models.TeamEfficiencyMetric{},
		&models.Prediction{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_games_sport_status ON games(sport, status)",
		"CREATE INDEX IF NOT EXISTS idx_games_sport_season ON games(sport, season)",
		"CREATE INDEX IF NOT EXISTS idx_predictions_sport_graded ON predictions(sport, graded_at)",
		"CREATE INDEX IF NOT EXISTS idx_rating_history_team_season ON rating_history(team_id, season)",
		"CREATE INDEX IF NOT EXISTS idx_stat_lines_team_season ON team_stat_lines(team_id, season)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	// Drop tables in reverse order to handle foreign key constraints
	tables := []string{
		"predictions",
		"team_efficiency_metrics",
		"team_stat_lines",
		"pitcher_rating_history",
		"pitcher_ratings",
		"rating_history",
		"team_ratings",
		"games",
		"teams",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}
