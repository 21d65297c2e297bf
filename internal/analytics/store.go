package analytics

import (
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	ActiveWindow     = 30 * time.Minute
	SessionRetention = 24 * time.Hour

	recentEventsLimit = 50
)

// Store owns all visitor state: the session map, the event log of the current
// day and the page and country counters. Counters only ever grow; cleanup
// prunes sessions and the event log but leaves them untouched.
type Store struct {
	mu        sync.RWMutex
	clock     Clock
	sessions  map[string]*SessionRecord
	events    []VisitorEvent
	pageViews map[string]int
	countries map[string]int
}

func NewStore(clock Clock) *Store {
	if clock == nil {
		clock = RealClock{}
	}
	return &Store{
		clock:     clock,
		sessions:  make(map[string]*SessionRecord),
		pageViews: make(map[string]int),
		countries: make(map[string]int),
	}
}

func (s *Store) ProcessEvent(event VisitorEvent) (*SessionRecord, Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.updateSession(event)
	s.events = append(s.events, event)
	s.pageViews[event.Page]++
	s.countries[event.Country]++

	return session.clone(), s.summaryLocked(s.clock.Now())
}

func (s *Store) updateSession(event VisitorEvent) *SessionRecord {
	existing, ok := s.sessions[event.SessionID]
	if !ok {
		session := &SessionRecord{
			SessionID:    event.SessionID,
			CurrentPage:  event.Page,
			Journey:      []string{event.Page},
			Duration:     0,
			Country:      event.Country,
			Device:       event.Metadata.Device,
			LastActivity: event.Timestamp,
		}
		s.sessions[event.SessionID] = session
		return session
	}

	// Duration is the gap since the previous event of this session, not the
	// total session length.
	existing.Duration = elapsedSeconds(existing.LastActivity, event.Timestamp)
	existing.Journey = append(existing.Journey, event.Page)
	existing.CurrentPage = event.Page
	existing.LastActivity = event.Timestamp
	return existing
}

func elapsedSeconds(from, to time.Time) int64 {
	return int64(math.Floor(to.Sub(from).Seconds()))
}

func (s *Store) GenerateSummary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summaryLocked(s.clock.Now())
}

func (s *Store) summaryLocked(now time.Time) Summary {
	cutoff := now.Add(-ActiveWindow)
	active := 0
	for _, session := range s.sessions {
		if session.LastActivity.After(cutoff) {
			active++
		}
	}

	return Summary{
		TotalActive:  active,
		TotalToday:   len(s.events),
		PagesVisited: copyCounts(s.pageViews),
	}
}

// ActiveSessions returns the sessions seen within the trailing activity window
// that match filter, most recent first.
func (s *Store) ActiveSessions(filter *Filter) []*SessionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSessionsLocked(s.clock.Now(), filter)
}

func (s *Store) activeSessionsLocked(now time.Time, filter *Filter) []*SessionRecord {
	cutoff := now.Add(-ActiveWindow)
	sessions := make([]*SessionRecord, 0)
	for _, session := range s.sessions {
		if !session.LastActivity.After(cutoff) {
			continue
		}
		if !filter.matchSession(session) {
			continue
		}
		sessions = append(sessions, session.clone())
	}

	slices.SortFunc(sessions, func(a, b *SessionRecord) int {
		if c := b.LastActivity.Compare(a.LastActivity); c != 0 {
			return c
		}
		return strings.Compare(a.SessionID, b.SessionID)
	})
	return sessions
}

// DetailedStats combines the summary, the filtered active sessions, the full
// country breakdown and the recent events. The recent-events window is the last
// 50 logged events, taken before the filter is applied.
func (s *Store) DetailedStats(filter *Filter) DetailedStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()

	window := s.events
	if len(window) > recentEventsLimit {
		window = window[len(window)-recentEventsLimit:]
	}

	recent := make([]VisitorEvent, 0, len(window))
	for i := range window {
		if filter.matchEvent(&window[i]) {
			recent = append(recent, window[i])
		}
	}
	slices.SortStableFunc(recent, func(a, b VisitorEvent) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	return DetailedStats{
		Summary:          s.summaryLocked(now),
		Sessions:         s.activeSessionsLocked(now, filter),
		CountryBreakdown: copyCounts(s.countries),
		RecentEvents:     recent,
	}
}

// CountEventsSince reports how many logged events carry a timestamp strictly
// after t.
func (s *Store) CountEventsSince(t time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for i := range s.events {
		if s.events[i].Timestamp.After(t) {
			count++
		}
	}
	return count
}

func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

type CleanupResult struct {
	SessionsRemoved int
	EventsRemoved   int
}

// CleanupOldData drops sessions idle for longer than SessionRetention and
// trims the event log to events at or after local midnight. Counters are kept.
func (s *Store) CleanupOldData() CleanupResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var result CleanupResult

	sessionCutoff := now.Add(-SessionRetention)
	for id, session := range s.sessions {
		if session.LastActivity.Before(sessionCutoff) {
			delete(s.sessions, id)
			result.SessionsRemoved++
		}
	}

	midnight := startOfDay(now)
	kept := make([]VisitorEvent, 0, len(s.events))
	for _, event := range s.events {
		if !event.Timestamp.Before(midnight) {
			kept = append(kept, event)
		}
	}
	result.EventsRemoved = len(s.events) - len(kept)
	s.events = kept

	return result
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func copyCounts(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
