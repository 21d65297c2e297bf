package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server accepts dashboard websocket connections on its own listener and hands
// each one to the hub.
type Server struct {
	hub    *Hub
	echo   *echo.Echo
	logger *slog.Logger
}

func NewServer(hub *Hub, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		hub:    hub,
		echo:   e,
		logger: logger.With("component", "ws_server"),
	}
	e.GET("/", s.HandleConnection)
	e.GET("/ws", s.HandleConnection)
	return s
}

// Handler exposes the server's routes for embedding in tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Listen binds addr and serves in the background. Bind errors are returned so
// startup fails instead of running without a dashboard endpoint.
func (s *Server) Listen(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("websocket listen on %s: %w", addr, err)
	}
	s.echo.Listener = lis

	s.logger.Info("websocket server listening", "addr", lis.Addr().String())
	go func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("websocket server error", "error", err)
		}
	}()
	return nil
}

// Close disconnects every observer and then stops the listener.
func (s *Server) Close(ctx context.Context) error {
	hubErr := s.hub.Close()
	if err := s.echo.Shutdown(ctx); err != nil {
		return errors.Join(hubErr, fmt.Errorf("websocket shutdown: %w", err))
	}
	return hubErr
}

func (s *Server) HandleConnection(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	conn := NewObserverConn(ws, s.logger)
	id, err := s.hub.Connect(conn)
	if err != nil {
		s.logger.Warn("rejecting observer", "error", err)
		_ = conn.Close()
		return nil
	}

	conn.logger = s.logger.With("observer_id", id)
	conn.logger.Info("dashboard connected", "remote_addr", c.RealIP())

	go conn.writePump()
	conn.readPump(s.hub, id)

	conn.logger.Info("dashboard disconnected")
	return nil
}
