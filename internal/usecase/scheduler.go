package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"NewsRelay/internal/ports"
)

// Scheduler binds the dispatcher cycle to a loop driver and reports the
// relay lifecycle.
type Scheduler struct {
	driver     ports.Scheduler
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring cycles.
func NewScheduler(driver ports.Scheduler, dispatcher *Dispatcher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, dispatcher: dispatcher, logger: logger}
}

// Start registers the dispatcher cycle with the driver. Triggers that fire
// late are logged with their lag.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.dispatcher == nil {
		return errors.New("scheduler: driver and dispatcher are required")
	}

	job := func(ctx context.Context, trigger time.Time) {
		if lag := time.Since(trigger); lag > time.Second {
			s.logger.Warn("cycle started late", "lag", lag.Round(time.Millisecond))
		}
		s.dispatcher.RunCycle(ctx)
	}

	if err := s.driver.Start(ctx, job); err != nil {
		return err
	}
	s.logger.Info("relay started", "history_size", len(s.dispatcher.History()), "first_run", s.dispatcher.FirstRun())
	return nil
}

// Stop halts the driver and waits for an in-flight cycle.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	err := s.driver.Stop(ctx)
	if err != nil {
		s.logger.Error("relay stopped before running cycle finished", "error", err)
		return err
	}

	var attrs []any
	if s.dispatcher != nil {
		attrs = []any{"history_size", len(s.dispatcher.History()), "first_run_pending", s.dispatcher.FirstRun()}
	}
	s.logger.Info("relay stopped", attrs...)
	return nil
}
