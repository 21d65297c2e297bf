package dashboard

import (
	"slices"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
)

const (
	MaxEvents   = 50
	MaxSessions = 20
	MaxAlerts   = 10
)

type ReceivedAlert struct {
	analytics.Alert
	ReceivedAt time.Time `json:"received_at"`
}

// View is the observer's bounded local picture of the server state. Events and
// alerts are newest first; sessions keep insertion order with the newest
// session at the front.
type View struct {
	Stats           analytics.Summary          `json:"stats"`
	Events          []analytics.VisitorEvent   `json:"events"`
	Sessions        []*analytics.SessionRecord `json:"sessions"`
	Alerts          []ReceivedAlert            `json:"alerts"`
	TotalDashboards int                        `json:"total_dashboards"`
	LastError       string                     `json:"last_error,omitempty"`
}

func (v *View) addEvent(event analytics.VisitorEvent) {
	v.Events = prepend(v.Events, event, MaxEvents)
}

// upsertSession replaces a known session in place or puts a new one at the
// front, dropping the oldest insertion once MaxSessions is exceeded.
func (v *View) upsertSession(session *analytics.SessionRecord) {
	for i, s := range v.Sessions {
		if s.SessionID == session.SessionID {
			v.Sessions[i] = session
			return
		}
	}
	v.Sessions = prepend(v.Sessions, session, MaxSessions)
}

func (v *View) addAlert(alert analytics.Alert, at time.Time) {
	v.Alerts = prepend(v.Alerts, ReceivedAlert{Alert: alert, ReceivedAt: at}, MaxAlerts)
}

// replace seeds the view from a detailed stats response.
func (v *View) replace(stats analytics.DetailedStats) {
	v.Stats = stats.Summary

	sessions := stats.Sessions
	if len(sessions) > MaxSessions {
		sessions = sessions[:MaxSessions]
	}
	v.Sessions = slices.Clone(sessions)

	events := stats.RecentEvents
	if len(events) > MaxEvents {
		events = events[:MaxEvents]
	}
	v.Events = slices.Clone(events)
}

func (v *View) clone() View {
	out := *v
	out.Stats.PagesVisited = cloneCounts(v.Stats.PagesVisited)
	out.Events = slices.Clone(v.Events)
	out.Alerts = slices.Clone(v.Alerts)
	out.Sessions = make([]*analytics.SessionRecord, len(v.Sessions))
	for i, s := range v.Sessions {
		cp := *s
		cp.Journey = slices.Clone(s.Journey)
		out.Sessions[i] = &cp
	}
	return out
}

func prepend[T any](list []T, item T, limit int) []T {
	out := make([]T, 0, min(len(list)+1, limit))
	out = append(out, item)
	for _, existing := range list {
		if len(out) == limit {
			break
		}
		out = append(out, existing)
	}
	return out
}

func cloneCounts(src map[string]int) map[string]int {
	if src == nil {
		return nil
	}
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
