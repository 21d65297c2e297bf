package ingest

import (
	"log/slog"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
	"github.com/eleven-am/visitor-pulse/internal/gateway"
	"github.com/eleven-am/visitor-pulse/internal/metrics"
	"github.com/eleven-am/visitor-pulse/internal/shared"
	"go.uber.org/fx"
)

type Config struct {
	WebSocketAddr string
}

func ProvideService(
	store *analytics.Store,
	rule *analytics.SpikeRule,
	hub *gateway.Hub,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *Service {
	return NewService(store, rule, hub, recorder, logger)
}

func ProvideHandler(
	service *Service,
	store *analytics.Store,
	hub *gateway.Hub,
	recorder metrics.Recorder,
	validator *shared.Validator,
	cfg Config,
	logger *slog.Logger,
) *Handler {
	return NewHandler(service, store, hub, recorder, validator, cfg.WebSocketAddr, logger.With("handler", "analytics"))
}

var Module = fx.Options(
	fx.Provide(
		ProvideService,
		ProvideHandler,
	),
)
