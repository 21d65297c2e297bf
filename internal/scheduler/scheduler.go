package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type Job func(ctx context.Context)

type job struct {
	name         string
	interval     time.Duration
	initialDelay time.Duration
	fn           Job
}

// delayedSchedule fires once at first and then every interval after each run.
// cron only calls Next from its run goroutine.
type delayedSchedule struct {
	first    time.Time
	interval time.Duration
	started  bool
}

func (d *delayedSchedule) Next(t time.Time) time.Time {
	if !d.started {
		d.started = true
		return d.first
	}
	return t.Add(d.interval)
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

// Scheduler runs named jobs on fixed intervals. A panicking job is logged and
// rescheduled; a job still running when its next tick arrives skips that tick.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.Mutex
	jobs    []job
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger.With("component", "scheduler")}
}

// Every registers fn to run first after initialDelay and then every interval.
// Jobs registered after Start are picked up on the next Start.
func (s *Scheduler) Every(name string, interval, initialDelay time.Duration, fn Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job{
		name:         name,
		interval:     interval,
		initialDelay: initialDelay,
		fn:           fn,
	})
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	logger := cronLogger{logger: s.logger}
	s.cron = cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	now := time.Now()
	for _, j := range s.jobs {
		s.cron.Schedule(&delayedSchedule{
			first:    now.Add(j.initialDelay),
			interval: j.interval,
		}, s.wrap(ctx, j))
		s.logger.Info("job scheduled", "job", j.name, "interval", j.interval.String(), "initial_delay", j.initialDelay.String())
	}
	s.cron.Start()
}

// Stop cancels every job and waits for in-progress runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, c := s.cancel, s.cron
	s.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) wrap(ctx context.Context, j job) cron.Job {
	return cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		j.fn(ctx)
		s.logger.Debug("job finished", "job", j.name, "duration", time.Since(start).String())
	})
}
