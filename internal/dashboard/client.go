package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
	"github.com/eleven-am/visitor-pulse/internal/dto"
	"github.com/eleven-am/visitor-pulse/internal/shared"
	"github.com/gorilla/websocket"
)

const (
	DefaultRetryInterval = 3 * time.Second
	DefaultMaxAttempts   = 10

	writeTimeout = 10 * time.Second
	readTimeout  = 90 * time.Second
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

type NotificationKind string

const (
	NotifyVisitor NotificationKind = "visitor"
	NotifyAlert   NotificationKind = "alert"
)

type Notification struct {
	Kind   NotificationKind
	Title  string
	Body   string
	Urgent bool
}

type Options struct {
	RetryInterval  time.Duration
	MaxAttempts    int
	Dialer         *websocket.Dialer
	Logger         *slog.Logger
	OnStateChange  func(State)
	OnNotification func(Notification)
}

// Client keeps a dashboard connected to the websocket endpoint, retrying a
// bounded number of times after unsolicited transport loss, and maintains the
// bounded View from the frames it receives.
type Client struct {
	url    string
	opts   Options
	logger *slog.Logger
	after  func(time.Duration) <-chan time.Time

	mu               sync.Mutex
	writeMu          sync.Mutex
	state            State
	conn             *websocket.Conn
	attempts         int
	manualDisconnect bool
	generation       uint64
	cancel           context.CancelFunc
	wg               sync.WaitGroup

	viewMu sync.RWMutex
	view   View
}

func NewClient(url string, opts Options) *Client {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		url:    url,
		opts:   opts,
		logger: opts.Logger.With("component", "dashboard_client"),
		after:  time.After,
		state:  StateDisconnected,
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Connect starts a connection run. Any previous run is abandoned, the retry
// budget is reset and automatic retries are re-enabled.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.manualDisconnect = false
	c.attempts = 0
	c.generation++
	gen := c.generation
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(runCtx, gen)
}

// Disconnect closes the transport and suppresses automatic retries until the
// next Connect or Reconnect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.manualDisconnect = true
	c.generation++
	cancel := c.cancel
	c.cancel = nil
	conn := c.conn
	c.conn = nil
	changed := c.state != StateDisconnected
	c.state = StateDisconnected
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		_ = conn.Close()
	}
	if changed {
		c.notifyState(StateDisconnected)
	}
}

func (c *Client) Reconnect(ctx context.Context) {
	c.Disconnect()
	c.Connect(ctx)
}

// Close disconnects and waits for the connection goroutine to exit. It must
// not be called from a callback.
func (c *Client) Close() {
	c.Disconnect()
	c.wg.Wait()
}

func (c *Client) run(ctx context.Context, gen uint64) {
	defer c.wg.Done()

	for {
		if !c.setState(gen, StateConnecting) {
			return
		}

		conn, _, err := c.opts.Dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.logger.Warn("dashboard connect failed", "url", c.url, "error", err)
		} else if c.attach(gen, conn) {
			c.logger.Info("dashboard connected", "url", c.url)
			c.setState(gen, StateConnected)
			if err := c.RequestDetailedStats(nil); err != nil {
				c.logger.Warn("initial stats request failed", "error", err)
			}
			c.readLoop(ctx, conn)
			c.detach(conn)
		} else {
			_ = conn.Close()
			return
		}

		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		if c.manualDisconnect || gen != c.generation {
			c.mu.Unlock()
			return
		}
		if c.attempts >= c.opts.MaxAttempts {
			c.mu.Unlock()
			c.logger.Error("reconnect attempts exhausted", "attempts", c.opts.MaxAttempts)
			c.setState(gen, StateDisconnected)
			return
		}
		c.mu.Unlock()

		if !c.setState(gen, StateReconnecting) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-c.after(c.opts.RetryInterval):
		}

		c.mu.Lock()
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()
		c.logger.Info("reconnecting", "attempt", attempt, "max_attempts", c.opts.MaxAttempts)
	}
}

func (c *Client) attach(gen uint64, conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.conn = conn
	c.attempts = 0
	return true
}

func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}

// setState applies s if gen is still the current run and reports whether it
// was applied.
func (c *Client) setState(gen uint64, s State) bool {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return false
	}
	changed := c.state != s
	c.state = s
	c.mu.Unlock()

	if changed {
		c.notifyState(s)
	}
	return true
}

func (c *Client) notifyState(s State) {
	c.logger.Debug("state changed", "state", s)
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(s)
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("dashboard connection lost", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	var msg dto.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("invalid server frame", "error", err)
		return
	}

	var note *Notification

	c.viewMu.Lock()
	switch msg.Type {
	case dto.MsgVisitorUpdate:
		var update dto.VisitorUpdateData
		if err := json.Unmarshal(msg.Data, &update); err == nil {
			c.view.addEvent(update.Event)
			c.view.Stats = update.Stats
			note = &Notification{
				Kind:  NotifyVisitor,
				Title: "New visitor",
				Body:  fmt.Sprintf("%s from %s", update.Event.Page, update.Event.Country),
			}
		}

	case dto.MsgSessionActivity:
		var session analytics.SessionRecord
		if err := json.Unmarshal(msg.Data, &session); err == nil {
			c.view.upsertSession(&session)
		}

	case dto.MsgAlert:
		var alert analytics.Alert
		if err := json.Unmarshal(msg.Data, &alert); err == nil {
			c.view.addAlert(alert, time.Now())
			note = &Notification{
				Kind:   NotifyAlert,
				Title:  string(alert.Level),
				Body:   alert.Message,
				Urgent: alert.Level == analytics.AlertWarning || alert.Level == analytics.AlertError,
			}
		}

	case dto.MsgDetailedStatsResponse:
		var stats analytics.DetailedStats
		if err := json.Unmarshal(msg.Data, &stats); err == nil {
			c.view.replace(stats)
		}

	case dto.MsgUserConnected:
		var data dto.UserConnectedData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			c.view.TotalDashboards = data.TotalDashboards
		}

	case dto.MsgUserDisconnected:
		var data dto.UserDisconnectedData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			c.view.TotalDashboards = data.TotalDashboards
		}

	case dto.MsgError:
		c.view.LastError = msg.Message

	default:
		c.logger.Debug("ignoring server frame", "type", msg.Type)
	}
	c.viewMu.Unlock()

	if msg.Type == dto.MsgError {
		c.logger.Warn("server reported error", "message", msg.Message)
	}
	if note != nil && c.opts.OnNotification != nil {
		c.opts.OnNotification(*note)
	}
}

func (c *Client) send(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return shared.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

// RequestDetailedStats asks the server for a detailed snapshot; the response
// replaces the view's stats, sessions and events.
func (c *Client) RequestDetailedStats(filter *analytics.Filter) error {
	return c.send(dto.RequestDetailedStatsMessage{
		Type:   dto.MsgRequestDetailedStats,
		Filter: filter,
	})
}

func (c *Client) TrackDashboardAction(action string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return c.send(dto.TrackDashboardActionMessage{
		Type:    dto.MsgTrackDashboardAction,
		Action:  action,
		Details: details,
	})
}

func (c *Client) ClearAlerts() {
	c.viewMu.Lock()
	c.view.Alerts = nil
	c.viewMu.Unlock()
}

func (c *Client) ClearEvents() {
	c.viewMu.Lock()
	c.view.Events = nil
	c.viewMu.Unlock()
	c.track("clear_events")
}

func (c *Client) ClearSessions() {
	c.viewMu.Lock()
	c.view.Sessions = nil
	c.viewMu.Unlock()
	c.track("clear_sessions")
}

func (c *Client) track(action string) {
	if err := c.TrackDashboardAction(action, map[string]any{"at": time.Now().UTC()}); err != nil {
		c.logger.Debug("dashboard action not sent", "action", action, "error", err)
	}
}

func (c *Client) Snapshot() View {
	c.viewMu.RLock()
	defer c.viewMu.RUnlock()
	return c.view.clone()
}
