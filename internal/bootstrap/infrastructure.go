package bootstrap

import (
	"context"
	"log/slog"

	"github.com/eleven-am/visitor-pulse/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// ProvideRedisClient returns nil when REDIS_ADDR is unset; the metrics mirror
// and the redis health component are then disabled.
func ProvideRedisClient(lc fx.Lifecycle, cfg *Config, logger *slog.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Info("redis not configured, hourly metrics disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func ProvideMetricsRecorder(client *redis.Client) metrics.Recorder {
	if client == nil {
		return metrics.Noop{}
	}
	return metrics.NewRedisRecorder(client)
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideRedisClient,
		ProvideMetricsRecorder,
	),
)
