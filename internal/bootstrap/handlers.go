package bootstrap

import (
	"log/slog"
	"os"

	"github.com/eleven-am/visitor-pulse/internal/ingest"
	"github.com/eleven-am/visitor-pulse/internal/shared"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})).With("env", cfg.Env)
}

func ProvideValidator() *shared.Validator {
	return shared.NewValidator()
}

func ProvideIngestConfig(cfg *Config) ingest.Config {
	return ingest.Config{WebSocketAddr: cfg.WebSocketAddr}
}

func RegisterRoutes(e *echo.Echo, h *ingest.Handler) {
	h.RegisterRoutes(e)
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideValidator,
		ProvideIngestConfig,
	),
	ingest.Module,
	fx.Invoke(RegisterRoutes),
)
