package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/pkg/config"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// SchedulerService drives the per-sport game-lifecycle pipeline on cron schedules:
// apply finals to ratings, recompute opponent adjustments, generate forecasts for
// upcoming games, refresh live forecasts, grade settled ones. Sports run
// independently; within a sport each job is a single synchronous pass, which keeps
// the single-writer-per-season contract of the adjustment run.
type SchedulerService struct {
	engines   map[string]*SportEngine
	cfg       *config.Config
	cache     *CacheService
	logger    *logrus.Logger
	cron      *cron.Cron
	liveLimit *rate.Limiter
	mu        sync.Mutex
	isRunning bool
}

func NewSchedulerService(engines map[string]*SportEngine, cfg *config.Config, cache *CacheService, logger *logrus.Logger) *SchedulerService {
	perSecond := cfg.LiveUpdatesPerSecond
	if perSecond <= 0 {
		perSecond = 25
	}
	return &SchedulerService{
		engines:   engines,
		cfg:       cfg,
		cache:     cache,
		logger:    logger,
		cron:      cron.New(),
		liveLimit: rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

// Start registers and begins the cron jobs.
func (s *SchedulerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	jobs := []struct {
		schedule string
		name     string
		run      func()
	}{
		{s.cfg.RatingsSchedule, "ratings", s.runRatings},
		{s.cfg.AdjustmentSchedule, "adjustments", s.runAdjustments},
		{s.cfg.PredictionSchedule, "predictions", s.runPredictions},
		{s.cfg.LiveRefreshSchedule, "live", s.runLiveUpdates},
		{s.cfg.GradingSchedule, "grading", s.runGrading},
	}
	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.schedule, job.run); err != nil {
			return fmt.Errorf("failed to schedule %s job: %w", job.name, err)
		}
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("Scheduler service started")
	return nil
}

// Stop halts the cron jobs, waiting for in-flight runs.
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Scheduler service stopped")
}

// runRatings applies the Elo backlog of final games per sport. Replays are skips,
// so overlapping or retried runs are harmless.
func (s *SchedulerService) runRatings() {
	runID := uuid.NewString()
	for sport, engine := range s.engines {
		games, err := engine.Games.ListUnratedFinalGames(sport, 500)
		if err != nil {
			s.logger.Errorf("Ratings run %s: failed to list games for %s: %v", runID, sport, err)
			continue
		}

		applied, skipped := 0, 0
		for i := range games {
			result, err := engine.Elo.Apply(&games[i])
			if err != nil {
				s.logger.Errorf("Ratings run %s: game %d: %v", runID, games[i].ID, err)
				continue
			}
			if result.Skipped {
				skipped++
			} else {
				applied++
			}
		}

		if applied > 0 {
			s.cache.Delete(context.Background(), RatingsCacheKey(sport))
		}
		s.logger.WithFields(logrus.Fields{
			"run_id":  runID,
			"sport":   sport,
			"applied": applied,
			"skipped": skipped,
		}).Info("Ratings run completed")
	}
}

// runAdjustments recomputes the current season's opponent-adjusted metrics. One
// synchronous pass per sport keeps the per-season single-writer requirement.
func (s *SchedulerService) runAdjustments() {
	runID := uuid.NewString()
	now := time.Now().UTC()
	for sport, engine := range s.engines {
		season := CurrentSeason(sport, now)
		result, err := engine.Adjuster.Calculate(sport, season)
		if err != nil {
			s.logger.Errorf("Adjustment run %s: %s %s: %v", runID, sport, season, err)
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"run_id":     runID,
			"sport":      sport,
			"season":     season,
			"teams":      result.Teams,
			"iterations": result.Iterations,
			"converged":  result.Converged,
		}).Info("Adjustment run completed")
	}
}

// runPredictions generates forecasts for games starting in the next 48 hours.
func (s *SchedulerService) runPredictions() {
	runID := uuid.NewString()
	for sport, engine := range s.engines {
		games, err := engine.Games.ListUpcomingGames(sport, 48*time.Hour)
		if err != nil {
			s.logger.Errorf("Prediction run %s: failed to list games for %s: %v", runID, sport, err)
			continue
		}

		generated, skipped := 0, 0
		for i := range games {
			prediction, err := engine.Generator.Generate(&games[i])
			if err != nil {
				s.logger.Errorf("Prediction run %s: game %d: %v", runID, games[i].ID, err)
				continue
			}
			if prediction == nil {
				skipped++
				continue
			}
			generated++
			s.cache.SetSimple(PredictionCacheKey(games[i].ID), prediction, time.Duration(s.cfg.PredictionCacheSeconds)*time.Second)
		}

		s.logger.WithFields(logrus.Fields{
			"run_id":    runID,
			"sport":     sport,
			"generated": generated,
			"skipped":   skipped,
		}).Info("Prediction run completed")
	}
}

// runLiveUpdates refreshes live forecasts for in-progress games. Updates are
// throttled so a full slate of games can't saturate the database, and losses are
// fine: the next tick overwrites with fresh values anyway.
func (s *SchedulerService) runLiveUpdates() {
	ctx := context.Background()
	for sport, engine := range s.engines {
		games, err := engine.Games.ListGamesByStatus(sport, liveScanStatuses(engine.Profile.Live))
		if err != nil {
			s.logger.Errorf("Live run: failed to list games for %s: %v", sport, err)
			continue
		}

		for i := range games {
			if err := s.liveLimit.Wait(ctx); err != nil {
				return
			}
			prediction, err := engine.Live.Update(&games[i])
			if err != nil {
				s.logger.Errorf("Live run: game %d: %v", games[i].ID, err)
				continue
			}
			if prediction != nil {
				s.cache.SetSimple(PredictionCacheKey(games[i].ID), prediction, time.Duration(s.cfg.PredictionCacheSeconds)*time.Second)
			}
		}
	}
}

// liveScanStatuses is the status filter for the live pass: the sport's in-progress
// statuses plus the dead-end ones, so a game postponed or canceled mid-play gets
// its stale live fields cleared.
func liveScanStatuses(live config.LiveProfile) []string {
	statuses := append([]string{}, live.InProgressStatuses...)
	return append(statuses, models.GameStatusPostponed, models.GameStatusCanceled)
}

// runGrading settles predictions for final games.
func (s *SchedulerService) runGrading() {
	runID := uuid.NewString()
	now := time.Now().UTC()
	for sport, engine := range s.engines {
		season := CurrentSeason(sport, now)
		summary, err := engine.Grader.Grade(sport, season)
		if err != nil {
			s.logger.Errorf("Grading run %s: %s: %v", runID, sport, err)
			continue
		}
		if summary.Graded > 0 {
			s.cache.Delete(context.Background(), AccuracyCacheKey(sport, season))
		}
		s.logger.WithFields(logrus.Fields{
			"run_id":  runID,
			"sport":   sport,
			"graded":  summary.Graded,
			"skipped": summary.Skipped,
		}).Info("Grading run completed")
	}
}

// Status reports the scheduler state for the health endpoint.
func (s *SchedulerService) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	nextRuns := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		nextRuns = append(nextRuns, entry.Next)
	}

	sports := make([]string, 0, len(s.engines))
	for sport := range s.engines {
		sports = append(sports, sport)
	}

	return map[string]interface{}{
		"is_running": s.isRunning,
		"sports":     sports,
		"next_runs":  nextRuns,
		"cron_jobs":  len(entries),
	}
}
