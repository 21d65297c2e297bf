package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func newTestScheduler() *Scheduler {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScheduler_RunsAfterDelayThenOnInterval(t *testing.T) {
	s := newTestScheduler()
	var runs atomic.Int32
	s.Every("count", 20*time.Millisecond, 10*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})

	s.Start(context.Background())
	time.Sleep(120 * time.Millisecond)
	s.Stop()

	if n := runs.Load(); n < 3 {
		t.Errorf("expected at least 3 runs, got %d", n)
	}
}

func TestScheduler_StopBeforeInitialDelay(t *testing.T) {
	s := newTestScheduler()
	var runs atomic.Int32
	s.Every("never", time.Hour, time.Hour, func(context.Context) {
		runs.Add(1)
	})

	s.Start(context.Background())
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop should not wait for pending timers")
	}
	if runs.Load() != 0 {
		t.Error("job should not have run")
	}
}

func TestScheduler_StopWaitsForRunningJob(t *testing.T) {
	s := newTestScheduler()
	started := make(chan struct{})
	var finished atomic.Bool
	s.Every("slow", time.Hour, 0, func(context.Context) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})

	s.Start(context.Background())
	<-started
	s.Stop()

	if !finished.Load() {
		t.Error("stop returned before the running job finished")
	}
}

func TestScheduler_PanicDoesNotKillLoop(t *testing.T) {
	s := newTestScheduler()
	var runs atomic.Int32
	s.Every("panicky", 10*time.Millisecond, 0, func(context.Context) {
		runs.Add(1)
		panic("boom")
	})

	s.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	if runs.Load() < 2 {
		t.Errorf("expected job to keep running after panic, got %d runs", runs.Load())
	}
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := newTestScheduler()
	s.Stop()
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}
