package bootstrap

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	ServerAddr    string
	WebSocketAddr string
	Env           string
	CORSOrigins   []string

	CleanupInterval     time.Duration
	CleanupInitialDelay time.Duration
	StatsInterval       time.Duration
	StatsInitialDelay   time.Duration
	AlertThreshold      int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel string
}

// LoadConfig reads the environment, seeded from a .env file when one exists,
// and validates the result.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddr:    getEnv("SERVER_ADDR", ":3000"),
		WebSocketAddr: getEnv("WEBSOCKET_ADDR", ":8080"),
		Env:           getEnv("APP_ENV", EnvDevelopment),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		CleanupInterval:     time.Duration(getEnvInt("CLEANUP_INTERVAL_MINUTES", 60)) * time.Minute,
		CleanupInitialDelay: time.Duration(getEnvInt("CLEANUP_INITIAL_DELAY_SECONDS", 30)) * time.Second,
		StatsInterval:       time.Duration(getEnvInt("STATS_INTERVAL_MINUTES", 10)) * time.Minute,
		StatsInitialDelay:   5 * time.Second,
		AlertThreshold:      getEnvInt("ALERT_THRESHOLD", 10),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if err := validateAddr("SERVER_ADDR", c.ServerAddr); err != nil {
		errs = append(errs, err)
	}
	if err := validateAddr("WEBSOCKET_ADDR", c.WebSocketAddr); err != nil {
		errs = append(errs, err)
	}
	if c.ServerAddr == c.WebSocketAddr {
		errs = append(errs, fmt.Errorf("SERVER_ADDR and WEBSOCKET_ADDR must differ, both are %q", c.ServerAddr))
	}

	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be one of development, production, test, got %q", c.Env))
	}

	if c.CleanupInterval < time.Minute {
		errs = append(errs, fmt.Errorf("CLEANUP_INTERVAL_MINUTES must be at least 1"))
	}
	if c.CleanupInitialDelay < 0 {
		errs = append(errs, fmt.Errorf("CLEANUP_INITIAL_DELAY_SECONDS must not be negative"))
	}
	if c.StatsInterval < time.Minute {
		errs = append(errs, fmt.Errorf("STATS_INTERVAL_MINUTES must be at least 1"))
	}
	if c.AlertThreshold < 1 {
		errs = append(errs, fmt.Errorf("ALERT_THRESHOLD must be at least 1"))
	}
	if c.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("REDIS_DB must not be negative"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func validateAddr(name, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%s %q: %w", name, addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("%s %q: port must be between 1 and 65535", name, addr)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
