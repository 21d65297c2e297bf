package scheduler

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
	"github.com/shirou/gopsutil/v3/process"
)

type Cleaner interface {
	CleanupOldData() analytics.CleanupResult
}

type SummarySource interface {
	GenerateSummary() analytics.Summary
	SessionCount() int
}

type ObserverCounter interface {
	Count() int
}

// CleanupJob prunes expired sessions and the previous days' events.
func CleanupJob(store Cleaner, logger *slog.Logger) Job {
	return func(context.Context) {
		result := store.CleanupOldData()
		logger.Info("analytics cleanup finished",
			"sessions_removed", result.SessionsRemoved,
			"events_removed", result.EventsRemoved,
		)
	}
}

// StatsJob logs a snapshot of process and analytics state.
func StatsJob(store SummarySource, observers ObserverCounter, startTime time.Time, logger *slog.Logger) Job {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn("process stats unavailable", "error", err)
	}

	return func(ctx context.Context) {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		summary := store.GenerateSummary()
		attrs := []any{
			"uptime_seconds", int64(time.Since(startTime).Seconds()),
			"goroutines", runtime.NumGoroutine(),
			"heap_alloc_mb", mem.HeapAlloc / 1024 / 1024,
			"heap_sys_mb", mem.HeapSys / 1024 / 1024,
			"observers", observers.Count(),
			"sessions", store.SessionCount(),
			"active_sessions", summary.TotalActive,
			"events_today", summary.TotalToday,
		}

		if proc != nil {
			if info, err := proc.MemoryInfoWithContext(ctx); err == nil {
				attrs = append(attrs, "rss_mb", info.RSS/1024/1024)
			}
		}

		logger.Info("system stats", attrs...)
	}
}
