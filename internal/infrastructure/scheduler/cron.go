package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"HNFilter/internal/ports"
	"HNFilter/pkg/logger"
)

// CronScheduler runs a job on a standard five-field cron expression.
type CronScheduler struct {
	spec     string
	location *time.Location
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler validates spec and builds a scheduler in loc (UTC when nil).
func NewCronScheduler(spec string, loc *time.Location, log *slog.Logger) (*CronScheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &CronScheduler{spec: spec, location: loc, logger: log.With("component", "cron")}, nil
}

// Start registers job and begins ticking. Overlapping triggers are skipped.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cron != nil {
		return nil
	}

	printf := cron.PrintfLogger(logger.New(c.logger, "cron"))
	engine := cron.New(
		cron.WithLocation(c.location),
		cron.WithLogger(printf),
		cron.WithChain(cron.Recover(printf), cron.SkipIfStillRunning(printf)),
	)

	id, err := engine.AddFunc(c.spec, func() {
		if ctx.Err() != nil {
			return
		}
		job(time.Now().In(c.location))
	})
	if err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}

	engine.Start()
	c.cron = engine
	c.entryID = id

	if next := engine.Entry(id).Next; !next.IsZero() {
		c.logger.Info("scheduler started", "spec", c.spec, "next_run", next)
	}
	return nil
}

// Next reports the upcoming trigger time, zero when not started.
func (c *CronScheduler) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron == nil {
		return time.Time{}
	}
	return c.cron.Entry(c.entryID).Next
}

// Stop halts the scheduler and waits for a running job until ctx expires.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	engine := c.cron
	c.cron = nil
	c.mu.Unlock()

	if engine == nil {
		return nil
	}

	select {
	case <-engine.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
