package dto

import (
	"encoding/json"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
)

type MessageType string

const (
	MsgUserConnected         MessageType = "user_connected"
	MsgUserDisconnected      MessageType = "user_disconnected"
	MsgVisitorUpdate         MessageType = "visitor_update"
	MsgSessionActivity       MessageType = "session_activity"
	MsgAlert                 MessageType = "alert"
	MsgDetailedStatsResponse MessageType = "detailed_stats_response"
	MsgError                 MessageType = "error"

	MsgRequestDetailedStats MessageType = "request_detailed_stats"
	MsgTrackDashboardAction MessageType = "track_dashboard_action"
)

// ServerMessage is the envelope for every frame sent to an observer. Error
// frames carry Message instead of Data.
type ServerMessage struct {
	Type    MessageType `json:"type"`
	Data    any         `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// InboundMessage is ServerMessage as seen by an observer, with Data left
// undecoded until the type is known.
type InboundMessage struct {
	Type    MessageType     `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

type UserConnectedData struct {
	TotalDashboards int       `json:"total_dashboards"`
	ConnectedAt     time.Time `json:"connected_at"`
}

type UserDisconnectedData struct {
	TotalDashboards int `json:"total_dashboards"`
}

type VisitorUpdateData struct {
	Event analytics.VisitorEvent `json:"event"`
	Stats analytics.Summary      `json:"stats"`
}

// ClientMessageHeader is decoded first to route an observer message by type.
type ClientMessageHeader struct {
	Type MessageType `json:"type"`
}

type RequestDetailedStatsMessage struct {
	Type   MessageType       `json:"type"`
	Filter *analytics.Filter `json:"filter,omitempty"`
}

type TrackDashboardActionMessage struct {
	Type    MessageType    `json:"type"`
	Action  string         `json:"action" validate:"required"`
	Details map[string]any `json:"details" validate:"required"`
}
