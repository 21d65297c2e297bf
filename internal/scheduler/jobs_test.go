package scheduler

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
)

type countObservers int

func (c countObservers) Count() int { return int(c) }

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestCleanupJob_RemovesStaleSessions(t *testing.T) {
	store := analytics.NewStore(nil)
	store.ProcessEvent(analytics.VisitorEvent{
		Type:      analytics.EventTypePageview,
		Page:      "/home",
		SessionID: "stale",
		Timestamp: time.Now().Add(-48 * time.Hour),
		Country:   "USA",
		Metadata:  analytics.EventMetadata{Device: "desktop", Referrer: "direct"},
	})
	store.ProcessEvent(analytics.VisitorEvent{
		Type:      analytics.EventTypePageview,
		Page:      "/home",
		SessionID: "fresh",
		Timestamp: time.Now(),
		Country:   "USA",
		Metadata:  analytics.EventMetadata{Device: "desktop", Referrer: "direct"},
	})

	logger, buf := bufferLogger()
	CleanupJob(store, logger)(context.Background())

	if store.SessionCount() != 1 {
		t.Errorf("expected 1 session left, got %d", store.SessionCount())
	}
	if !strings.Contains(buf.String(), "sessions_removed=1") {
		t.Errorf("expected cleanup result logged, got %q", buf.String())
	}
}

func TestStatsJob_LogsSnapshot(t *testing.T) {
	store := analytics.NewStore(nil)
	logger, buf := bufferLogger()

	StatsJob(store, countObservers(3), time.Now(), logger)(context.Background())

	out := buf.String()
	for _, want := range []string{"system stats", "observers=3", "goroutines=", "rss_mb="} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output, got %q", want, out)
		}
	}
}
