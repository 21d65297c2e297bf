package ingest

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
	"github.com/eleven-am/visitor-pulse/internal/dto"
	"github.com/eleven-am/visitor-pulse/internal/metrics"
	"github.com/eleven-am/visitor-pulse/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	service   *Service
	store     *analytics.Store
	hub       Broadcaster
	recorder  metrics.Recorder
	validator *shared.Validator
	logger    *slog.Logger
	startTime time.Time
	wsAddr    string
}

func NewHandler(
	service *Service,
	store *analytics.Store,
	hub Broadcaster,
	recorder metrics.Recorder,
	validator *shared.Validator,
	wsAddr string,
	logger *slog.Logger,
) *Handler {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Handler{
		service:   service,
		store:     store,
		hub:       hub,
		recorder:  recorder,
		validator: validator,
		logger:    logger,
		startTime: time.Now(),
		wsAddr:    wsAddr,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)

	api := e.Group("/api")
	api.POST("/events", h.ReceiveEvent)
	api.GET("/status", h.Status)

	g := api.Group("/analytics")
	g.GET("/summary", h.Summary)
	g.GET("/sessions", h.Sessions)
	g.GET("/detailed", h.Detailed)
	g.GET("/hourly", h.Hourly)
}

func filterFromQuery(c echo.Context) analytics.Filter {
	return analytics.Filter{
		Country: c.QueryParam("country"),
		Page:    c.QueryParam("page"),
	}
}

func (h *Handler) ReceiveEvent(c echo.Context) error {
	var event analytics.VisitorEvent
	if err := c.Bind(&event); err != nil {
		return shared.BadRequest("invalid_event", "invalid event payload")
	}

	if errs := h.validator.Struct(&event); len(errs) > 0 {
		return shared.NewAPIError("invalid_event", "invalid event payload").
			WithDetails(errs).
			ToHTTP(http.StatusBadRequest)
	}

	session, summary, err := h.service.Ingest(c.Request().Context(), event)
	if err != nil {
		if errors.Is(err, shared.ErrShuttingDown) {
			return shared.ServiceUnavailable("shutting_down", "server is shutting down")
		}
		h.logger.Error("failed to process event", "error", err, "session_id", event.SessionID)
		return shared.InternalError("process_failed", "failed to process visitor event")
	}

	return c.JSON(http.StatusCreated, dto.EventAcceptedResponse{
		Success: true,
		Message: "Event processed successfully",
		Data: dto.EventAcceptedData{
			SessionID:    session.SessionID,
			CurrentStats: summary,
		},
	})
}

func (h *Handler) Summary(c echo.Context) error {
	filter := filterFromQuery(c)

	data := dto.SummaryData{
		Summary:     h.store.GenerateSummary(),
		GeneratedAt: time.Now().UTC(),
	}
	if !filter.IsEmpty() {
		detailed := h.store.DetailedStats(&filter)
		data.FilteredData = &detailed
	}

	return c.JSON(http.StatusOK, dto.SummaryResponse{Success: true, Data: data})
}

func (h *Handler) Sessions(c echo.Context) error {
	filter := filterFromQuery(c)

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return shared.BadRequest("invalid_limit", "limit must be a non-negative integer")
		}
		limit = n
	}

	sessions := h.store.ActiveSessions(&filter)
	total := len(sessions)
	if limit > 0 && limit < total {
		sessions = sessions[:limit]
	}

	return c.JSON(http.StatusOK, dto.SessionsResponse{
		Success: true,
		Data: dto.SessionsData{
			Sessions:       sessions,
			TotalCount:     total,
			FiltersApplied: filter,
			RetrievedAt:    time.Now().UTC(),
		},
	})
}

func (h *Handler) Detailed(c echo.Context) error {
	filter := filterFromQuery(c)

	return c.JSON(http.StatusOK, dto.DetailedResponse{
		Success:        true,
		Data:           h.store.DetailedStats(&filter),
		FiltersApplied: filter,
		GeneratedAt:    time.Now().UTC(),
	})
}

func (h *Handler) Hourly(c echo.Context) error {
	if !h.recorder.Enabled() {
		return shared.ServiceUnavailable("metrics_disabled", "hourly metrics require redis")
	}

	hours := metrics.DefaultHours
	if raw := c.QueryParam("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > metrics.MaxHours {
			return shared.BadRequest("invalid_hours", "hours must be between 1 and 168")
		}
		hours = n
	}

	data, err := h.recorder.Hourly(c.Request().Context(), hours)
	if err != nil {
		h.logger.Error("failed to read hourly metrics", "error", err)
		return shared.InternalError("metrics_failed", "failed to read hourly metrics")
	}

	return c.JSON(http.StatusOK, dto.HourlyMetricsResponse{
		Success: true,
		Hours:   hours,
		Data:    data,
	})
}

func (h *Handler) Status(c echo.Context) error {
	stats := h.hub.Stats()

	return c.JSON(http.StatusOK, dto.StatusResponse{
		Success: true,
		Data: dto.StatusData{
			ServerStatus:         "healthy",
			WebsocketConnections: stats.TotalConnections,
			ConnectedObservers:   stats.ConnectedObservers,
			CurrentAnalytics:     h.store.GenerateSummary(),
			UptimeSeconds:        int64(time.Since(h.startTime).Seconds()),
			Timestamp:            time.Now().UTC(),
		},
	})
}

func (h *Handler) Index(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"name":      "visitor-pulse",
		"websocket": h.wsAddr,
		"endpoints": map[string]string{
			"events":   "POST /api/events",
			"summary":  "GET /api/analytics/summary",
			"sessions": "GET /api/analytics/sessions",
			"detailed": "GET /api/analytics/detailed",
			"hourly":   "GET /api/analytics/hourly",
			"status":   "GET /api/status",
			"health":   "GET /health",
		},
	})
}
