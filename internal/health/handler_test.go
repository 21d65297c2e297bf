package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/eleven-am/visitor-pulse/internal/analytics"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type fixedObservers int

func (f fixedObservers) Count() int { return int(f) }

func doHealth(t *testing.T, h *Handler) HealthResponse {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	if err := h.Health(e.NewContext(req, rec)); err != nil {
		t.Fatalf("health: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestHealth_WithoutRedis(t *testing.T) {
	h := NewHandler(nil, analytics.NewStore(nil), fixedObservers(2), "test")

	resp := doHealth(t, h)
	if resp.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", resp.Status)
	}
	if _, ok := resp.Components["redis"]; ok {
		t.Error("redis component should be omitted when not configured")
	}
	if resp.Stats.Observers != 2 {
		t.Errorf("expected 2 observers, got %d", resp.Stats.Observers)
	}
	if resp.Version != "test" {
		t.Errorf("expected version test, got %s", resp.Version)
	}
}

func TestHealth_RedisHealthy(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	resp := doHealth(t, NewHandler(client, analytics.NewStore(nil), fixedObservers(0), "test"))
	if resp.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", resp.Status)
	}
	if resp.Components["redis"].Status != StatusHealthy {
		t.Errorf("expected healthy redis, got %+v", resp.Components["redis"])
	}
}

func TestHealth_RedisDownDegrades(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	resp := doHealth(t, NewHandler(client, analytics.NewStore(nil), fixedObservers(0), "test"))
	if resp.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", resp.Status)
	}
	if resp.Components["redis"].Error == "" {
		t.Error("expected redis error to be reported")
	}
}

func TestLiveness(t *testing.T) {
	h := NewHandler(nil, analytics.NewStore(nil), fixedObservers(0), "test")
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()

	if err := h.Liveness(e.NewContext(req, rec)); err != nil {
		t.Fatalf("liveness: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequestCounters(t *testing.T) {
	h := NewHandler(nil, analytics.NewStore(nil), fixedObservers(0), "test")
	h.IncrementRequests()
	h.IncrementRequests()
	h.IncrementConnections()
	h.IncrementConnections()
	h.DecrementConnections()

	resp := doHealth(t, h)
	if resp.Stats.Requests.TotalRequests != 2 {
		t.Errorf("expected 2 requests, got %d", resp.Stats.Requests.TotalRequests)
	}
	if resp.Stats.Requests.ActiveConnections != 1 {
		t.Errorf("expected 1 active connection, got %d", resp.Stats.Requests.ActiveConnections)
	}
}
