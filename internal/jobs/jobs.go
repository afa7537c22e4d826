/**
 * @description
 * Scheduled job implementations for the billing service.
 */
package jobs

import (
	"context"
	"log/slog"

	"github.com/repotrack/billing-service/internal/app"
)

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	service app.Service
	logger  *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(service app.Service, logger *slog.Logger) *Jobs {
	return &Jobs{service: service, logger: logger}
}

// RunOverdueSweep persists overdue status for pending records past due.
func (j *Jobs) RunOverdueSweep() {
	j.logger.Info("starting overdue sweep job")
	ctx := context.Background()

	result, err := j.service.RunOverdueSweep(ctx)
	if err != nil {
		j.logger.Error("overdue sweep job failed", "error", err)
		return
	}

	j.logger.Info("overdue sweep job finished", "marked_overdue", result.MarkedOverdue)
}

// RunProofRetentionSweep purges proof images past the retention window.
func (j *Jobs) RunProofRetentionSweep() {
	j.logger.Info("starting proof retention sweep job")
	ctx := context.Background()

	result, err := j.service.RunProofRetentionSweep(ctx)
	if err != nil {
		j.logger.Error("proof retention sweep job failed", "error", err)
		return
	}

	j.logger.Info("proof retention sweep job finished", "purged", result.Purged, "failed", result.Failed)
}
