package analytics

import (
	"time"
)

const EventTypePageview = "pageview"

type EventMetadata struct {
	Device   string `json:"device" validate:"required"`
	Referrer string `json:"referrer" validate:"required"`
}

// VisitorEvent is a single page view reported by a tracked website. Events are
// never mutated after ingestion.
type VisitorEvent struct {
	Type      string        `json:"type" validate:"required,eq=pageview"`
	Page      string        `json:"page" validate:"required"`
	SessionID string        `json:"session_id" validate:"required"`
	Timestamp time.Time     `json:"timestamp" validate:"required"`
	Country   string        `json:"country" validate:"required"`
	Metadata  EventMetadata `json:"metadata"`
}

type SessionRecord struct {
	SessionID    string    `json:"session_id"`
	CurrentPage  string    `json:"current_page"`
	Journey      []string  `json:"journey"`
	Duration     int64     `json:"duration"`
	Country      string    `json:"country"`
	Device       string    `json:"device"`
	LastActivity time.Time `json:"last_activity"`
}

func (s *SessionRecord) clone() *SessionRecord {
	c := *s
	c.Journey = append([]string(nil), s.Journey...)
	return &c
}

type Summary struct {
	TotalActive  int            `json:"total_active"`
	TotalToday   int            `json:"total_today"`
	PagesVisited map[string]int `json:"pages_visited"`
}

type Filter struct {
	Country string `json:"country,omitempty"`
	Page    string `json:"page,omitempty"`
}

func (f *Filter) IsEmpty() bool {
	return f == nil || (f.Country == "" && f.Page == "")
}

func (f *Filter) matchSession(s *SessionRecord) bool {
	if f == nil {
		return true
	}
	if f.Country != "" && s.Country != f.Country {
		return false
	}
	if f.Page != "" && s.CurrentPage != f.Page {
		return false
	}
	return true
}

func (f *Filter) matchEvent(e *VisitorEvent) bool {
	if f == nil {
		return true
	}
	if f.Country != "" && e.Country != f.Country {
		return false
	}
	if f.Page != "" && e.Page != f.Page {
		return false
	}
	return true
}

type DetailedStats struct {
	Summary          Summary          `json:"summary"`
	Sessions         []*SessionRecord `json:"sessions"`
	CountryBreakdown map[string]int   `json:"country_breakdown"`
	RecentEvents     []VisitorEvent   `json:"recent_events"`
}

type AlertLevel string

const (
	AlertInfo    AlertLevel = "info"
	AlertWarning AlertLevel = "warning"
	AlertError   AlertLevel = "error"
)

type Alert struct {
	Level   AlertLevel     `json:"level"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}
