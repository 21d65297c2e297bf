package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
	"github.com/eleven-am/visitor-pulse/internal/gateway"
	"github.com/eleven-am/visitor-pulse/internal/metrics"
	"github.com/eleven-am/visitor-pulse/internal/shared"
)

const recordTimeout = 2 * time.Second

type Broadcaster interface {
	BroadcastVisitorUpdate(event analytics.VisitorEvent, summary analytics.Summary)
	BroadcastSessionActivity(session *analytics.SessionRecord)
	BroadcastAlert(level analytics.AlertLevel, message string, details map[string]any)
	Stats() gateway.ConnectionStats
}

// Service runs the per-event pipeline: aggregate, fan out, evaluate alerts and
// mirror to the metrics recorder.
type Service struct {
	store    *analytics.Store
	rule     *analytics.SpikeRule
	hub      Broadcaster
	recorder metrics.Recorder
	logger   *slog.Logger

	// pipeline serializes aggregation, fan-out and alert evaluation so
	// observers see ingestions in the order the store applied them.
	pipeline sync.Mutex

	mu       sync.RWMutex
	draining bool
	inflight sync.WaitGroup
}

func NewService(
	store *analytics.Store,
	rule *analytics.SpikeRule,
	hub Broadcaster,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *Service {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Service{
		store:    store,
		rule:     rule,
		hub:      hub,
		recorder: recorder,
		logger:   logger.With("component", "ingest"),
	}
}

func (s *Service) Ingest(ctx context.Context, event analytics.VisitorEvent) (*analytics.SessionRecord, analytics.Summary, error) {
	s.mu.RLock()
	if s.draining {
		s.mu.RUnlock()
		return nil, analytics.Summary{}, shared.ErrShuttingDown
	}
	s.inflight.Add(1)
	s.mu.RUnlock()
	defer s.inflight.Done()

	session, summary := s.apply(event)

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.recorder.Record(recordCtx, event); err != nil {
		s.logger.Warn("metrics record failed", "session_id", event.SessionID, "error", err)
	}

	return session, summary, nil
}

func (s *Service) apply(event analytics.VisitorEvent) (*analytics.SessionRecord, analytics.Summary) {
	s.pipeline.Lock()
	defer s.pipeline.Unlock()

	session, summary := s.store.ProcessEvent(event)

	s.hub.BroadcastVisitorUpdate(event, summary)
	s.hub.BroadcastSessionActivity(session)

	if alert := s.rule.Check(s.store); alert != nil {
		s.logger.Info("alert raised", "level", alert.Level, "message", alert.Message, "details", alert.Details)
		s.hub.BroadcastAlert(alert.Level, alert.Message, alert.Details)
	}
	return session, summary
}

// Drain rejects new events and waits for in-flight ones to finish their
// broadcasts, or for ctx to expire.
func (s *Service) Drain(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("ingestion drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) Draining() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draining
}
