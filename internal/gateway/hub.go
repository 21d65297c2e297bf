package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
	"github.com/eleven-am/visitor-pulse/internal/dto"
	"github.com/eleven-am/visitor-pulse/internal/shared"
	"github.com/google/uuid"
)

// Transport is the outbound half of an observer connection. Send must not
// block; a full or closed queue is reported as an error.
type Transport interface {
	Send(data []byte) error
	Close() error
}

type StatsProvider interface {
	DetailedStats(filter *analytics.Filter) analytics.DetailedStats
}

type observer struct {
	id          string
	transport   Transport
	connectedAt time.Time
}

type ConnectionStats struct {
	TotalConnections   int      `json:"total_connections"`
	ConnectedObservers []string `json:"connected_observers"`
}

// Hub is the registry of connected dashboard observers and the fan-out point
// for every server-originated message.
type Hub struct {
	mu         sync.RWMutex
	observers  map[string]*observer
	transports map[Transport]string
	closed     bool
	stopped    bool

	stats     StatsProvider
	validator *shared.Validator
	logger    *slog.Logger
}

func NewHub(stats StatsProvider, validator *shared.Validator, logger *slog.Logger) *Hub {
	if validator == nil {
		validator = shared.NewValidator()
	}
	return &Hub{
		observers:  make(map[string]*observer),
		transports: make(map[Transport]string),
		stats:      stats,
		validator:  validator,
		logger:     logger.With("component", "hub"),
	}
}

// Connect registers t under a fresh observer id, greets it with a
// user_connected frame and announces it to every other observer.
func (h *Hub) Connect(t Transport) (string, error) {
	id := uuid.NewString()
	now := time.Now()

	h.mu.Lock()
	if h.closed || h.stopped {
		h.mu.Unlock()
		return "", shared.ErrHubClosed
	}
	if _, exists := h.transports[t]; exists {
		h.mu.Unlock()
		return "", shared.ErrAlreadyRegistered
	}
	h.observers[id] = &observer{id: id, transport: t, connectedAt: now}
	h.transports[t] = id
	total := len(h.observers)
	h.mu.Unlock()

	h.logger.Info("observer registered", "observer_id", id, "total", total)

	msg := dto.ServerMessage{
		Type: dto.MsgUserConnected,
		Data: dto.UserConnectedData{
			TotalDashboards: total,
			ConnectedAt:     now.UTC(),
		},
	}
	if !h.sendTo(id, msg) {
		return id, nil
	}
	h.Broadcast(msg, id)
	return id, nil
}

// Disconnect deregisters the observer and tells the remaining observers the
// new registry size. Unknown ids are ignored, so transport errors and explicit
// closes may both report the same observer.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	o, ok := h.observers[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.observers, id)
	delete(h.transports, o.transport)
	total := len(h.observers)
	h.mu.Unlock()

	if err := o.transport.Close(); err != nil {
		h.logger.Debug("observer transport close failed", "observer_id", id, "error", err)
	}
	h.logger.Info("observer deregistered", "observer_id", id, "total", total,
		"connected_for", time.Since(o.connectedAt).Round(time.Second).String())

	h.Broadcast(dto.ServerMessage{
		Type: dto.MsgUserDisconnected,
		Data: dto.UserDisconnectedData{TotalDashboards: total},
	}, "")
}

// Broadcast delivers msg to every observer except exclude. Observers whose
// send fails are disconnected after the fan-out completes.
func (h *Hub) Broadcast(msg dto.ServerMessage, exclude string) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("broadcast marshal error", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*observer, 0, len(h.observers))
	for id, o := range h.observers {
		if id != exclude {
			targets = append(targets, o)
		}
	}
	h.mu.RUnlock()

	var failed []string
	for _, o := range targets {
		if err := o.transport.Send(data); err != nil {
			h.logger.Warn("broadcast to observer failed", "observer_id", o.id, "type", msg.Type, "error", err)
			failed = append(failed, o.id)
		}
	}

	for _, id := range failed {
		h.Disconnect(id)
	}
}

func (h *Hub) BroadcastVisitorUpdate(event analytics.VisitorEvent, summary analytics.Summary) {
	h.Broadcast(dto.ServerMessage{
		Type: dto.MsgVisitorUpdate,
		Data: dto.VisitorUpdateData{Event: event, Stats: summary},
	}, "")
}

func (h *Hub) BroadcastSessionActivity(session *analytics.SessionRecord) {
	h.Broadcast(dto.ServerMessage{
		Type: dto.MsgSessionActivity,
		Data: session,
	}, "")
}

func (h *Hub) BroadcastAlert(level analytics.AlertLevel, message string, details map[string]any) {
	h.Broadcast(dto.ServerMessage{
		Type: dto.MsgAlert,
		Data: analytics.Alert{Level: level, Message: message, Details: details},
	}, "")
}

// HandleMessage routes one raw frame received from an observer. Malformed
// frames are answered with an error frame; unknown types are dropped.
func (h *Hub) HandleMessage(id string, raw []byte) {
	var header dto.ClientMessageHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		h.logger.Debug("invalid observer message", "observer_id", id, "error", err)
		h.sendError(id, "Invalid message format")
		return
	}

	switch header.Type {
	case dto.MsgRequestDetailedStats:
		var msg dto.RequestDetailedStatsMessage
		if err := h.decode(raw, &msg); err != nil {
			h.sendError(id, err.Error())
			return
		}
		h.handleDetailedStats(id, &msg)

	case dto.MsgTrackDashboardAction:
		var msg dto.TrackDashboardActionMessage
		if err := h.decode(raw, &msg); err != nil {
			h.sendError(id, err.Error())
			return
		}
		h.logger.Info("dashboard action", "observer_id", id, "action", msg.Action, "details", msg.Details)

	case "":
		h.sendError(id, "Invalid message format: missing type")

	default:
		h.logger.Warn("unknown message type", "observer_id", id, "type", header.Type)
	}
}

func (h *Hub) decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("Invalid message schema: %v", err)
	}
	if errs := h.validator.Struct(v); len(errs) > 0 {
		parts := make([]string, 0, len(errs))
		for _, e := range errs {
			parts = append(parts, e.Message)
		}
		return fmt.Errorf("Invalid message schema: %s", strings.Join(parts, "; "))
	}
	return nil
}

func (h *Hub) handleDetailedStats(id string, msg *dto.RequestDetailedStatsMessage) {
	h.logger.Debug("detailed stats requested", "observer_id", id, "filter", msg.Filter)
	h.sendTo(id, dto.ServerMessage{
		Type: dto.MsgDetailedStatsResponse,
		Data: h.stats.DetailedStats(msg.Filter),
	})
}

func (h *Hub) sendError(id, message string) {
	h.sendTo(id, dto.ServerMessage{Type: dto.MsgError, Message: message})
}

// sendTo unicasts msg and reports whether the observer is still registered
// afterwards.
func (h *Hub) sendTo(id string, msg dto.ServerMessage) bool {
	h.mu.RLock()
	o, ok := h.observers[id]
	h.mu.RUnlock()
	if !ok {
		h.logger.Warn("cannot send to observer: not connected", "observer_id", id, "type", msg.Type)
		return false
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal error", "type", msg.Type, "error", err)
		return true
	}

	if err := o.transport.Send(data); err != nil {
		h.logger.Warn("send to observer failed", "observer_id", id, "type", msg.Type, "error", err)
		h.Disconnect(id)
		return false
	}
	return true
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

func (h *Hub) Stats() ConnectionStats {
	h.mu.RLock()
	ids := make([]string, 0, len(h.observers))
	for id := range h.observers {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	slices.Sort(ids)
	return ConnectionStats{
		TotalConnections:   len(ids),
		ConnectedObservers: ids,
	}
}

// StopAccepting refuses new observers while leaving the registered ones
// connected until Close.
func (h *Hub) StopAccepting() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	h.logger.Info("hub no longer accepting observers")
}

// Close closes every registered transport and refuses further registrations.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	observers := h.observers
	h.observers = make(map[string]*observer)
	h.transports = make(map[Transport]string)
	h.mu.Unlock()

	var errs []error
	for id, o := range observers {
		if err := o.transport.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close observer %s: %w", id, err))
		}
	}
	h.logger.Info("hub closed", "observers", len(observers))
	return errors.Join(errs...)
}
