package model

import (
	"fmt"
	"strings"
	"time"
)

// UsageSession is one charging event. Records are immutable once produced:
// the engine never mutates sessions, it only derives aggregates from them.
type UsageSession struct {
	ID           string
	StationID    string
	SessionStart time.Time
	SessionEnd   time.Time
	EnergyKWh    float64 // energy consumed, >= 0; zero when unreported
	DurationMin  float64 // duration in minutes, >= 0
	HasDuration  bool    // false when the source omitted the duration field
	Cost         float64 // session revenue in currency units, >= 0
	UserType     string
}

// Validate checks the invariants a normalized session must satisfy.
func (u UsageSession) Validate() error {
	if strings.TrimSpace(u.StationID) == "" {
		return fmt.Errorf("session %s: station id must not be empty", u.ID)
	}
	if u.SessionStart.IsZero() {
		return fmt.Errorf("session %s: start timestamp required", u.ID)
	}
	if u.EnergyKWh < 0 {
		return fmt.Errorf("session %s: negative energy", u.ID)
	}
	if u.DurationMin < 0 {
		return fmt.Errorf("session %s: negative duration", u.ID)
	}
	if u.Cost < 0 {
		return fmt.Errorf("session %s: negative cost", u.ID)
	}
	return nil
}

// Hour returns the session start floored to the hour in UTC. Correlation
// joins key on this value.
func (u UsageSession) Hour() time.Time {
	return u.SessionStart.UTC().Truncate(time.Hour)
}

// Date returns the calendar day of the session start in UTC.
func (u UsageSession) Date() time.Time {
	t := u.SessionStart.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether the session started on a Saturday or Sunday.
func (u UsageSession) IsWeekend() bool {
	wd := u.SessionStart.UTC().Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// CleanSessions drops invalid sessions and substitutes documented defaults
// for absent optional fields rather than failing.
func CleanSessions(sessions []UsageSession) []UsageSession {
	out := make([]UsageSession, 0, len(sessions))
	for _, s := range sessions {
		s.StationID = strings.TrimSpace(s.StationID)
		if err := s.Validate(); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
