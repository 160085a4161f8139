package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type delaySchedule struct {
	delay time.Duration
}

func (d delaySchedule) Next(t time.Time) time.Time {
	return t.Add(d.delay)
}

func TestParseInterval(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, time.November, 8, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		spec    string
		want    time.Time
		wantErr bool
	}{
		{spec: "60s", want: base.Add(60 * time.Second)},
		{spec: "@every 1m", want: base.Add(time.Minute)},
		{spec: "*/5 * * * *", want: base.Add(5 * time.Minute)},
		{spec: "500ms", wantErr: true},
		{spec: "", wantErr: true},
		{spec: "every minute", wantErr: true},
	}

	for _, tt := range tests {
		schedule, err := ParseInterval(tt.spec)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tt.spec)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.spec, err)
		}
		if got := schedule.Next(base); !got.Equal(tt.want) {
			t.Fatalf("%q: next = %v, want %v", tt.spec, got, tt.want)
		}
	}
}

func TestCronSchedulerRunsImmediatelyAndRepeats(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(delaySchedule{delay: 10 * time.Millisecond}, nil)
	runs := make(chan struct{}, 10)

	if err := s.Start(context.Background(), func(context.Context, time.Time) {
		runs <- struct{}{}
	}); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-runs:
		case <-time.After(2 * time.Second):
			t.Fatalf("run %d did not happen", i)
		}
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
}

func TestCronSchedulerAnchorsOnCompletion(t *testing.T) {
	t.Parallel()

	const (
		delay    = 30 * time.Millisecond
		duration = 40 * time.Millisecond
	)

	var (
		mu     sync.Mutex
		starts []time.Time
		ends   []time.Time
		active int32
		maxAct int32
	)
	finished := make(chan struct{})

	s := NewCronScheduler(delaySchedule{delay: delay}, nil)
	err := s.Start(context.Background(), func(context.Context, time.Time) {
		n := atomic.AddInt32(&active, 1)
		for {
			cur := atomic.LoadInt32(&maxAct)
			if n <= cur || atomic.CompareAndSwapInt32(&maxAct, cur, n) {
				break
			}
		}

		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()

		time.Sleep(duration)

		mu.Lock()
		ends = append(ends, time.Now())
		count := len(ends)
		mu.Unlock()

		atomic.AddInt32(&active, -1)
		if count == 3 {
			close(finished)
		}
	})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	select {
	case <-finished:
	case <-time.After(3 * time.Second):
		t.Fatalf("cycles did not complete")
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	if atomic.LoadInt32(&maxAct) != 1 {
		t.Fatalf("cycles overlapped: max concurrency %d", maxAct)
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < 3; i++ {
		if gap := starts[i].Sub(ends[i-1]); gap < delay {
			t.Fatalf("cycle %d started %v after previous completion, want >= %v", i, gap, delay)
		}
	}
}

func TestCronSchedulerStopWaitsForRunningCycle(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var completed atomic.Bool

	s := NewCronScheduler(delaySchedule{delay: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := s.Start(ctx, func(jobCtx context.Context, _ time.Time) {
		close(started)
		<-release
		if jobCtx.Err() == nil {
			completed.Store(true)
		}
	})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	<-started
	cancel()

	stopped := make(chan error, 1)
	go func() {
		stopped <- s.Stop(context.Background())
	}()

	select {
	case <-stopped:
		t.Fatalf("Stop returned while a cycle was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return after cycle finished")
	}

	if !completed.Load() {
		t.Fatalf("cycle context was cancelled by shutdown")
	}
}

func TestCronSchedulerStopTimeout(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	s := NewCronScheduler(delaySchedule{delay: time.Hour}, nil)
	if err := s.Start(context.Background(), func(context.Context, time.Time) {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := s.Stop(ctx); err == nil {
		t.Fatalf("expected timeout error while cycle is blocked")
	}
}

func TestCronSchedulerStopWithoutStart(t *testing.T) {
	t.Parallel()

	if err := NewCronScheduler(delaySchedule{}, nil).Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
}
