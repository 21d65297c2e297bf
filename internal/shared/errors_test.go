package shared

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAPIError_WithDetails(t *testing.T) {
	err := NewAPIError("invalid_event", "invalid event data")
	if err.Details != nil {
		t.Errorf("expected nil details, got %v", err.Details)
	}

	err = err.WithDetails([]string{"page is required"})
	d, ok := err.Details.([]string)
	if !ok || len(d) != 1 {
		t.Fatalf("unexpected details: %#v", err.Details)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		err    *echo.HTTPError
		status int
		code   string
	}{
		{"BadRequest", BadRequest("bad", "bad request"), http.StatusBadRequest, "bad"},
		{"ServiceUnavailable", ServiceUnavailable("shutting_down", "draining"), http.StatusServiceUnavailable, "shutting_down"},
		{"InternalError", InternalError("internal", "boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertHTTPError(t, tt.err, tt.status, tt.code)
		})
	}
}

func assertHTTPError(t *testing.T, err *echo.HTTPError, expectedStatus int, expectedCode string) {
	t.Helper()
	if err.Code != expectedStatus {
		t.Errorf("expected status %d, got %d", expectedStatus, err.Code)
	}
	apiErr, ok := err.Message.(*APIError)
	if !ok {
		t.Fatal("expected message to be *APIError")
	}
	if apiErr.Code != expectedCode {
		t.Errorf("expected code '%s', got '%s'", expectedCode, apiErr.Code)
	}
}
