package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"NewsRelay/internal/ports"
)

// CronScheduler runs a job, waits for it to finish and only then arms the
// next fire time computed from the completion instant. Cycles never overlap
// and a running cycle is never cancelled by Stop.
type CronScheduler struct {
	schedule cron.Schedule
	logger   *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// ParseInterval accepts a Go duration ("60s"), a descriptor ("@every 1m")
// or a standard five-field cron expression.
func ParseInterval(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty schedule")
	}

	if d, err := time.ParseDuration(spec); err == nil {
		if d < time.Second {
			return nil, fmt.Errorf("interval %s is below one second", d)
		}
		return cron.Every(d), nil
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// NewCronScheduler builds a scheduler for the given schedule.
func NewCronScheduler(schedule cron.Schedule, logger *slog.Logger) *CronScheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CronScheduler{schedule: schedule, logger: logger}
}

// Start runs job immediately and then after every completion plus interval.
func (c *CronScheduler) Start(ctx context.Context, job func(context.Context, time.Time)) error {
	if job == nil {
		return nil
	}
	if c.schedule == nil {
		return fmt.Errorf("scheduler has no schedule")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return nil
	}

	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.loop(ctx, job, c.stop, c.done)

	return nil
}

func (c *CronScheduler) loop(ctx context.Context, job func(context.Context, time.Time), stop, done chan struct{}) {
	defer close(done)

	// Cycles run to completion even when the parent context is cancelled.
	jobCtx := context.WithoutCancel(ctx)

	trigger := time.Now()
	for {
		job(jobCtx, trigger)

		completed := time.Now()
		next := c.schedule.Next(completed)
		if next.IsZero() {
			c.logger.Warn("schedule has no further activations")
			return
		}
		c.logger.Debug("next cycle armed", "at", next, "in", next.Sub(completed))

		timer := time.NewTimer(next.Sub(completed))
		select {
		case trigger = <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stop:
			timer.Stop()
			return
		}
	}
}

// Stop prevents further cycles and waits for an in-flight one, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running cycle: %w", ctx.Err())
	}
}
