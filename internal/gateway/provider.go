package gateway

import (
	"log/slog"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
	"github.com/eleven-am/visitor-pulse/internal/shared"
	"go.uber.org/fx"
)

func ProvideHub(store *analytics.Store, validator *shared.Validator, logger *slog.Logger) *Hub {
	return NewHub(store, validator, logger)
}

func ProvideServer(hub *Hub, logger *slog.Logger) *Server {
	return NewServer(hub, logger)
}

var Module = fx.Options(
	fx.Provide(
		ProvideHub,
		ProvideServer,
	),
)
