package bootstrap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
	"github.com/eleven-am/visitor-pulse/internal/gateway"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func testConfig() *Config {
	cfg := validConfig()
	cfg.ServerAddr = "127.0.0.1:0"
	cfg.WebSocketAddr = "127.0.0.1:0"
	cfg.LogLevel = "error"
	return cfg
}

func appOptions(cfg *Config, extra ...fx.Option) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		HandlersModule,
		InfrastructureModule,
		AnalyticsModule,
		gateway.Module,
		ServerModule,
		HealthModule,
		fx.Invoke(StartLifecycle),
		fx.Decorate(func(*slog.Logger) *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }),
		fx.NopLogger,
		fx.Options(extra...),
	)
}

func TestApp_GraphIsComplete(t *testing.T) {
	if err := fx.ValidateApp(appOptions(testConfig())); err != nil {
		t.Fatalf("invalid dependency graph: %v", err)
	}
}

func TestApp_StartServeStop(t *testing.T) {
	var e *echo.Echo
	var store *analytics.Store
	app := fxtest.New(t, appOptions(testConfig(), fx.Populate(&e, &store)))
	app.RequireStart()

	base := fmt.Sprintf("http://%s", e.Listener.Addr().String())
	client := &http.Client{Timeout: 5 * time.Second}

	body, _ := json.Marshal(map[string]any{
		"type":       "pageview",
		"page":       "/home",
		"session_id": "s1",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"country":    "USA",
		"metadata":   map[string]string{"device": "desktop", "referrer": "direct"},
	})
	resp, err := client.Post(base+"/api/events", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post event: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	health, err := client.Get(base + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from health, got %d", health.StatusCode)
	}

	if store.SessionCount() != 1 {
		t.Errorf("expected 1 session, got %d", store.SessionCount())
	}

	app.RequireStop()

	if _, err := client.Get(base + "/health"); err == nil {
		t.Error("rest server should be closed after stop")
	}
}
