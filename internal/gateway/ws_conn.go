package gateway

import (
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/shared"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// ObserverConn adapts a websocket to the hub's Transport. Outbound frames are
// queued on a bounded buffer drained by writePump, so Send never blocks.
type ObserverConn struct {
	ws     *websocket.Conn
	logger *slog.Logger
	send   chan []byte
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewObserverConn(ws *websocket.Conn, logger *slog.Logger) *ObserverConn {
	return newObserverConn(ws, logger, sendBufferSize)
}

func newObserverConn(ws *websocket.Conn, logger *slog.Logger, buffer int) *ObserverConn {
	return &ObserverConn{
		ws:     ws,
		logger: logger,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

func (c *ObserverConn) Send(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return shared.ErrConnClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		return shared.ErrSendBufferFull
	}
}

func (c *ObserverConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return c.ws.Close()
}

func (c *ObserverConn) readPump(hub *Hub, id string) {
	defer hub.Disconnect(id)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", "error", err)
			}
			return
		}
		hub.HandleMessage(id, message)
	}
}

func (c *ObserverConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
