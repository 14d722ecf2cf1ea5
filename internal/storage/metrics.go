package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/pkg/database"
	"gorm.io/gorm"
)

// MetricStore reads and writes per-team per-season efficiency aggregates. Raw
// values are synced by the ingestion layer; adjusted/rolling/split values are
// bulk-written by the opponent adjustment run.
type MetricStore struct {
	db *database.DB
}

func NewMetricStore(db *database.DB) *MetricStore {
	return &MetricStore{db: db}
}

// GetMetric returns one team's season metrics, or nil when absent.
func (s *MetricStore) GetMetric(teamID uint, season string) (*models.TeamEfficiencyMetric, error) {
	var metric models.TeamEfficiencyMetric
	err := s.db.Where("team_id = ? AND season = ?", teamID, season).First(&metric).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch metrics for team %d season %s: %w", teamID, season, err)
	}
	return &metric, nil
}

// ListSeasonMetrics returns every team's metrics row for a sport's season.
func (s *MetricStore) ListSeasonMetrics(sport, season string) ([]models.TeamEfficiencyMetric, error) {
	var metrics []models.TeamEfficiencyMetric
	err := s.db.Where("sport = ? AND season = ?", sport, season).Find(&metrics).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics for %s %s: %w", sport, season, err)
	}
	return metrics, nil
}

// SaveAdjustedMetrics bulk-writes the derived fields of an adjustment run. Rows
// are matched by id; raw fields stay untouched.
func (s *MetricStore) SaveAdjustedMetrics(metrics []models.TeamEfficiencyMetric) error {
	now := time.Now().UTC()
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := range metrics {
			m := &metrics[i]
			m.AdjustedAt = &now
			err := tx.Model(&models.TeamEfficiencyMetric{}).
				Where("id = ?", m.ID).
				Updates(map[string]interface{}{
					"adj_offensive_efficiency":     m.AdjOffensiveEfficiency,
					"adj_defensive_efficiency":     m.AdjDefensiveEfficiency,
					"adj_net_rating":               m.AdjNetRating,
					"adj_tempo":                    m.AdjTempo,
					"rolling_offensive_efficiency": m.RollingOffensiveEfficiency,
					"rolling_defensive_efficiency": m.RollingDefensiveEfficiency,
					"home_offensive_efficiency":    m.HomeOffensiveEfficiency,
					"home_defensive_efficiency":    m.HomeDefensiveEfficiency,
					"away_offensive_efficiency":    m.AwayOffensiveEfficiency,
					"away_defensive_efficiency":    m.AwayDefensiveEfficiency,
					"adjustment_iterations":        m.AdjustmentIterations,
					"adjustment_converged":         m.AdjustmentConverged,
					"adjusted_at":                  m.AdjustedAt,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to save adjusted metrics for team %d: %w", m.TeamID, err)
			}
		}
		return nil
	})
}
