package usecase

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"NewsRelay/internal/domain"
)

type fakeDriver struct {
	trigger time.Time
	stopErr error
	started bool
	stopped bool
}

func (f *fakeDriver) Start(ctx context.Context, job func(context.Context, time.Time)) error {
	f.started = true
	job(ctx, f.trigger)
	return nil
}

func (f *fakeDriver) Stop(context.Context) error {
	f.stopped = true
	return f.stopErr
}

func TestSchedulerRunsCycleAndLogsLifecycle(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	src := &fakeSource{batches: [][]domain.Article{batch("2", "1")}}
	pub := &fakePublisher{}
	d := NewDispatcher(DispatcherDeps{Source: src, Publisher: pub, History: &fakeStore{}})
	driver := &fakeDriver{trigger: time.Now().Add(-5 * time.Second)}

	s := NewScheduler(driver, d, logger)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	if !driver.started || !driver.stopped {
		t.Fatalf("driver not used: %+v", driver)
	}
	if got := pub.ids(); len(got) != 1 || got[0] != "2" {
		t.Fatalf("expected one delivery of the newest article, got %v", got)
	}

	out := buf.String()
	for _, want := range []string{"cycle started late", `msg="relay started"`, `msg="relay stopped"`, "history_size=2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestSchedulerStopReportsDriverError(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{stopErr: context.DeadlineExceeded}
	s := NewScheduler(driver, NewDispatcher(DispatcherDeps{}), nil)

	if err := s.Stop(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected driver error, got %v", err)
	}
}

func TestSchedulerStartRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if err := NewScheduler(nil, nil, nil).Start(context.Background()); err == nil {
		t.Fatalf("expected error without driver")
	}
}
