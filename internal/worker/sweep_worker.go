package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/equipment-maintenance/internal/service"
)

// SweepWorker periodically runs the overdue maintenance sweep. The sweep is
// idempotent, so overlapping deployments running their own workers are safe.
type SweepWorker struct {
	maintenance *service.MaintenanceService
	interval    time.Duration
	logger      *zap.Logger
}

// NewSweepWorker constructs the worker.
func NewSweepWorker(maintenance *service.MaintenanceService, interval time.Duration, logger *zap.Logger) *SweepWorker {
	return &SweepWorker{maintenance: maintenance, interval: interval, logger: logger}
}

// Run executes one sweep immediately, then on every tick until the context
// is cancelled.
func (w *SweepWorker) Run(ctx context.Context) {
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sweep worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SweepWorker) sweep(ctx context.Context) {
	claimed, err := w.maintenance.RunOverdueSweep(ctx, time.Now().UTC())
	if err != nil {
		w.logger.Error("overdue sweep failed", zap.Error(err))
		return
	}
	if claimed > 0 {
		w.logger.Info("overdue sweep claimed schedules", zap.Int("claimed", claimed))
	}
}
