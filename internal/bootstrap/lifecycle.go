package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
	"github.com/eleven-am/visitor-pulse/internal/gateway"
	"github.com/eleven-am/visitor-pulse/internal/ingest"
	"github.com/eleven-am/visitor-pulse/internal/scheduler"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

func ProvideStore() *analytics.Store {
	return analytics.NewStore(analytics.RealClock{})
}

func ProvideSpikeRule(cfg *Config) *analytics.SpikeRule {
	return analytics.NewSpikeRule(cfg.AlertThreshold, analytics.RealClock{})
}

func ProvideScheduler(cfg *Config, store *analytics.Store, hub *gateway.Hub, logger *slog.Logger) *scheduler.Scheduler {
	s := scheduler.New(logger)
	s.Every("cleanup", cfg.CleanupInterval, cfg.CleanupInitialDelay, scheduler.CleanupJob(store, logger))
	s.Every("system-stats", cfg.StatsInterval, cfg.StatsInitialDelay, scheduler.StatsJob(store, hub, time.Now(), logger))
	return s
}

var AnalyticsModule = fx.Options(
	fx.Provide(
		ProvideStore,
		ProvideSpikeRule,
		ProvideScheduler,
	),
)

type LifecycleParams struct {
	fx.In

	LC        fx.Lifecycle
	Config    *Config
	Echo      *echo.Echo
	Gateway   *gateway.Server
	Hub       *gateway.Hub
	Ingest    *ingest.Service
	Store     *analytics.Store
	Scheduler *scheduler.Scheduler
	Logger    *slog.Logger
}

// StartLifecycle binds both listeners before reporting the service as
// started, and on shutdown stops accepting events before the final cleanup.
func StartLifecycle(p LifecycleParams) {
	logger := p.Logger.With("component", "lifecycle")

	p.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", p.Config.ServerAddr)
			if err != nil {
				return fmt.Errorf("listen rest %s: %w", p.Config.ServerAddr, err)
			}
			p.Echo.Listener = ln

			if err := p.Gateway.Listen(p.Config.WebSocketAddr); err != nil {
				_ = ln.Close()
				return err
			}

			go func() {
				if err := p.Echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("rest server stopped", "error", err)
				}
			}()

			p.Scheduler.Start(context.Background())

			logger.Info("visitor pulse started",
				"rest_addr", p.Config.ServerAddr,
				"websocket_addr", p.Config.WebSocketAddr,
				"alert_threshold", p.Config.AlertThreshold,
				"redis_enabled", p.Config.RedisAddr != "",
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down")
			var errs []error

			p.Hub.StopAccepting()

			if err := p.Ingest.Drain(ctx); err != nil {
				errs = append(errs, fmt.Errorf("drain ingest: %w", err))
			}

			p.Scheduler.Stop()

			result := p.Store.CleanupOldData()
			logger.Info("final cleanup",
				"sessions_removed", result.SessionsRemoved,
				"events_removed", result.EventsRemoved,
			)

			if err := p.Gateway.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close gateway: %w", err))
			}
			if err := p.Echo.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown rest: %w", err))
			}

			return errors.Join(errs...)
		},
	})
}
