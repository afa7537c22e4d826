/**
 * @description
 * Cron scheduler setup for the billing service's sweeps.
 */
package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/repotrack/billing-service/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.OverdueSweepSchedule, s.jobs.RunOverdueSweep); err != nil {
		s.logger.Error("failed to schedule overdue sweep job", "error", err)
	} else {
		s.logger.Info("scheduled overdue sweep job", "schedule", s.config.OverdueSweepSchedule)
	}

	if _, err := s.cron.AddFunc(s.config.RetentionSweepSchedule, s.jobs.RunProofRetentionSweep); err != nil {
		s.logger.Error("failed to schedule proof retention sweep job", "error", err)
	} else {
		s.logger.Info("scheduled proof retention sweep job", "schedule", s.config.RetentionSweepSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
