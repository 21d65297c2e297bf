package dto

import (
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
)

type EventAcceptedData struct {
	SessionID    string            `json:"session_id"`
	CurrentStats analytics.Summary `json:"current_stats"`
}

type EventAcceptedResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    EventAcceptedData `json:"data"`
}

type SummaryData struct {
	Summary      analytics.Summary        `json:"summary"`
	FilteredData *analytics.DetailedStats `json:"filtered_data,omitempty"`
	GeneratedAt  time.Time                `json:"generated_at"`
}

type SummaryResponse struct {
	Success bool        `json:"success"`
	Data    SummaryData `json:"data"`
}

type SessionsData struct {
	Sessions       []*analytics.SessionRecord `json:"sessions"`
	TotalCount     int                        `json:"total_count"`
	FiltersApplied analytics.Filter           `json:"filters_applied"`
	RetrievedAt    time.Time                  `json:"retrieved_at"`
}

type SessionsResponse struct {
	Success bool         `json:"success"`
	Data    SessionsData `json:"data"`
}

type DetailedResponse struct {
	Success        bool                    `json:"success"`
	Data           analytics.DetailedStats `json:"data"`
	FiltersApplied analytics.Filter        `json:"filters_applied"`
	GeneratedAt    time.Time               `json:"generated_at"`
}

type StatusData struct {
	ServerStatus         string            `json:"server_status"`
	WebsocketConnections int               `json:"websocket_connections"`
	ConnectedObservers   []string          `json:"connected_observers"`
	CurrentAnalytics     analytics.Summary `json:"current_analytics"`
	UptimeSeconds        int64             `json:"uptime_seconds"`
	Timestamp            time.Time         `json:"timestamp"`
}

type StatusResponse struct {
	Success bool       `json:"success"`
	Data    StatusData `json:"data"`
}

type HourlyMetricsResponse struct {
	Success bool             `json:"success"`
	Hours   int              `json:"hours"`
	Data    []*HourlyMetrics `json:"data"`
}

type HourlyMetrics struct {
	Date      string           `json:"date"`
	Hour      int              `json:"hour"`
	Pages     map[string]int64 `json:"pages"`
	Countries map[string]int64 `json:"countries"`
	Total     int64            `json:"total"`
}
