package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"HNFilter/internal/logging"
	"HNFilter/internal/ports"
)

// Scheduler wires the cron-like driver with the cycle use case.
type Scheduler struct {
	driver ports.Scheduler
	cycle  *Cycle
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring cycles.
func NewScheduler(driver ports.Scheduler, cycle *Cycle, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{driver: driver, cycle: cycle, logger: logger.With("component", "scheduler")}
}

// Start registers the cycle with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.cycle == nil {
		return nil
	}

	return s.driver.Start(ctx, func(trigger time.Time) {
		s.RunOnce(ctx, trigger)
	})
}

// RunOnce executes one scheduled cycle with the default topics.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) {
	report, err := s.cycle.Run(ctx, nil, nil)
	switch {
	case errors.Is(err, ErrCycleInProgress):
		s.logger.Warn("previous cycle still running, skipping", "trigger", trigger)
	case err != nil:
		s.logger.Error("scheduled cycle failed", "trigger", trigger, "error", err)
	default:
		s.logger.Info("scheduled cycle done", "trigger", trigger, "run_id", report.RunID, "matched", report.Matched)
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
