package metrics

import (
	"context"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
	"github.com/eleven-am/visitor-pulse/internal/dto"
)

const (
	MaxHours     = 7 * 24
	DefaultHours = 24
)

// Recorder mirrors accepted events into hourly counters outside the process.
// The mirror is write-only from the analytics point of view; the in-memory
// store never reads it back.
type Recorder interface {
	Record(ctx context.Context, event analytics.VisitorEvent) error
	Hourly(ctx context.Context, hours int) ([]*dto.HourlyMetrics, error)
	Enabled() bool
}

func hourKey(t time.Time) (date string, hour int) {
	t = t.UTC()
	return t.Format("2006-01-02"), t.Hour()
}
