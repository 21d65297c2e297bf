package metrics

import (
	"context"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
	"github.com/eleven-am/visitor-pulse/internal/dto"
)

// Noop is used when no Redis address is configured.
type Noop struct{}

func (Noop) Record(context.Context, analytics.VisitorEvent) error { return nil }

func (Noop) Hourly(context.Context, int) ([]*dto.HourlyMetrics, error) { return nil, nil }

func (Noop) Enabled() bool { return false }
