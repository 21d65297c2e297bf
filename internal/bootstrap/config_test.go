package bootstrap

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		ServerAddr:          ":3000",
		WebSocketAddr:       ":8080",
		Env:                 EnvDevelopment,
		CleanupInterval:     time.Hour,
		CleanupInitialDelay: 30 * time.Second,
		StatsInterval:       10 * time.Minute,
		AlertThreshold:      10,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_ADDR", "WEBSOCKET_ADDR", "APP_ENV", "CORS_ORIGINS",
		"CLEANUP_INTERVAL_MINUTES", "CLEANUP_INITIAL_DELAY_SECONDS",
		"STATS_INTERVAL_MINUTES", "ALERT_THRESHOLD", "REDIS_ADDR", "REDIS_DB", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ServerAddr != ":3000" || cfg.WebSocketAddr != ":8080" {
		t.Errorf("unexpected addresses: %s %s", cfg.ServerAddr, cfg.WebSocketAddr)
	}
	if cfg.CleanupInterval != time.Hour || cfg.CleanupInitialDelay != 30*time.Second {
		t.Errorf("unexpected cleanup timing: %v %v", cfg.CleanupInterval, cfg.CleanupInitialDelay)
	}
	if cfg.StatsInterval != 10*time.Minute {
		t.Errorf("unexpected stats interval: %v", cfg.StatsInterval)
	}
	if cfg.AlertThreshold != 10 {
		t.Errorf("expected threshold 10, got %d", cfg.AlertThreshold)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("redis should be disabled by default, got %q", cfg.RedisAddr)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("SERVER_ADDR", "127.0.0.1:4000")
	t.Setenv("WEBSOCKET_ADDR", "127.0.0.1:4001")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ALERT_THRESHOLD", "25")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("expected production")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
	if cfg.AlertThreshold != 25 {
		t.Errorf("expected threshold 25, got %d", cfg.AlertThreshold)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad server addr", func(c *Config) { c.ServerAddr = "3000" }, "SERVER_ADDR"},
		{"port out of range", func(c *Config) { c.WebSocketAddr = ":70000" }, "WEBSOCKET_ADDR"},
		{"same addresses", func(c *Config) { c.WebSocketAddr = c.ServerAddr }, "must differ"},
		{"unknown env", func(c *Config) { c.Env = "staging" }, "APP_ENV"},
		{"short cleanup", func(c *Config) { c.CleanupInterval = 30 * time.Second }, "CLEANUP_INTERVAL_MINUTES"},
		{"zero threshold", func(c *Config) { c.AlertThreshold = 0 }, "ALERT_THRESHOLD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_ValidateReportsAllViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "staging"
	cfg.AlertThreshold = 0
	cfg.ServerAddr = "nope"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"APP_ENV", "ALERT_THRESHOLD", "SERVER_ADDR"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	if parseLogLevel("debug").String() != "DEBUG" {
		t.Error("expected debug level")
	}
	if parseLogLevel("bogus").String() != "INFO" {
		t.Error("unknown levels should fall back to info")
	}
}
