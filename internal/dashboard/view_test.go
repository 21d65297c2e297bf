package dashboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
)

func TestView_EventsNewestFirstCapped(t *testing.T) {
	var v View
	for i := 0; i < MaxEvents+5; i++ {
		v.addEvent(analytics.VisitorEvent{Page: fmt.Sprintf("/p%d", i)})
	}

	if len(v.Events) != MaxEvents {
		t.Fatalf("expected %d events, got %d", MaxEvents, len(v.Events))
	}
	if v.Events[0].Page != fmt.Sprintf("/p%d", MaxEvents+4) {
		t.Errorf("expected newest first, got %s", v.Events[0].Page)
	}
	if v.Events[MaxEvents-1].Page != "/p5" {
		t.Errorf("expected oldest kept to be /p5, got %s", v.Events[MaxEvents-1].Page)
	}
}

func TestView_SessionUpsertInPlace(t *testing.T) {
	var v View
	v.upsertSession(&analytics.SessionRecord{SessionID: "a", CurrentPage: "/home"})
	v.upsertSession(&analytics.SessionRecord{SessionID: "b", CurrentPage: "/home"})
	v.upsertSession(&analytics.SessionRecord{SessionID: "a", CurrentPage: "/checkout"})

	if len(v.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(v.Sessions))
	}
	if v.Sessions[0].SessionID != "b" || v.Sessions[1].SessionID != "a" {
		t.Errorf("upsert must keep position, got %s,%s", v.Sessions[0].SessionID, v.Sessions[1].SessionID)
	}
	if v.Sessions[1].CurrentPage != "/checkout" {
		t.Errorf("expected replaced record, got %s", v.Sessions[1].CurrentPage)
	}
}

func TestView_SessionsCapDropsOldestInsertion(t *testing.T) {
	var v View
	for i := 0; i < MaxSessions+3; i++ {
		v.upsertSession(&analytics.SessionRecord{SessionID: fmt.Sprintf("s%d", i)})
	}

	if len(v.Sessions) != MaxSessions {
		t.Fatalf("expected %d sessions, got %d", MaxSessions, len(v.Sessions))
	}
	for _, s := range v.Sessions {
		if s.SessionID == "s0" || s.SessionID == "s1" || s.SessionID == "s2" {
			t.Errorf("oldest session %s should have been dropped", s.SessionID)
		}
	}
}

func TestView_AlertsCapped(t *testing.T) {
	var v View
	for i := 0; i < MaxAlerts+2; i++ {
		v.addAlert(analytics.Alert{Level: analytics.AlertInfo, Message: fmt.Sprintf("a%d", i)}, time.Now())
	}

	if len(v.Alerts) != MaxAlerts {
		t.Fatalf("expected %d alerts, got %d", MaxAlerts, len(v.Alerts))
	}
	if v.Alerts[0].Message != fmt.Sprintf("a%d", MaxAlerts+1) {
		t.Errorf("expected newest alert first, got %s", v.Alerts[0].Message)
	}
}

func TestView_ReplaceCapsSeed(t *testing.T) {
	stats := analytics.DetailedStats{
		Summary: analytics.Summary{TotalToday: 99},
	}
	for i := 0; i < 30; i++ {
		stats.Sessions = append(stats.Sessions, &analytics.SessionRecord{SessionID: fmt.Sprintf("s%d", i)})
	}
	for i := 0; i < 60; i++ {
		stats.RecentEvents = append(stats.RecentEvents, analytics.VisitorEvent{Page: fmt.Sprintf("/p%d", i)})
	}

	var v View
	v.addAlert(analytics.Alert{Message: "kept"}, time.Now())
	v.replace(stats)

	if v.Stats.TotalToday != 99 {
		t.Errorf("expected stats replaced, got %+v", v.Stats)
	}
	if len(v.Sessions) != MaxSessions || len(v.Events) != MaxEvents {
		t.Errorf("expected capped seed, got %d sessions %d events", len(v.Sessions), len(v.Events))
	}
	if v.Sessions[0].SessionID != "s0" || v.Events[0].Page != "/p0" {
		t.Error("seed order should be preserved")
	}
	if len(v.Alerts) != 1 {
		t.Error("alerts are not part of the detailed stats seed")
	}
}

func TestView_CloneIsDeep(t *testing.T) {
	var v View
	v.upsertSession(&analytics.SessionRecord{SessionID: "a", Journey: []string{"/home"}})
	v.Stats.PagesVisited = map[string]int{"/home": 1}

	cp := v.clone()
	cp.Sessions[0].Journey[0] = "/mutated"
	cp.Stats.PagesVisited["/home"] = 42

	if v.Sessions[0].Journey[0] != "/home" {
		t.Error("clone shares journey slice")
	}
	if v.Stats.PagesVisited["/home"] != 1 {
		t.Error("clone shares page counts")
	}
}
