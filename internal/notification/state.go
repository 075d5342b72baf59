package notification

import (
	"fmt"
	"time"

	"worktime-tracker-backend/internal/attendance"
)

// Trigger identifies one notification rule and the flag that gates it.
type Trigger string

const (
	TriggerCompletion       Trigger = "completion"
	TriggerAverageTarget    Trigger = "average_target"
	TriggerOvertime         Trigger = "last_overtime_minutes"
	TriggerOvertimeFlag     Trigger = "overtime"
	TriggerLongSession      Trigger = "clocked_in_too_long"
	TriggerLunchBreak       Trigger = "lunch_break"
	TriggerTeaBreak         Trigger = "tea_break"
	TriggerLeaveApproaching Trigger = "leave_time_approaching"
	TriggerWeeklySummary    Trigger = "weekly_summary"
	TriggerTokenExpired     Trigger = "token_expired"
)

// Scope is the lifetime of a flag.
type Scope int

const (
	ScopeDay Scope = iota
	ScopeWeek
)

// Scope reports whether the trigger's flag lives for a day or an ISO week.
func (t Trigger) Scope() Scope {
	if t == TriggerWeeklySummary {
		return ScopeWeek
	}
	return ScopeDay
}

// PeriodKey is "2026-10-19" for day-scoped flags and "2026-W43" for
// week-scoped ones, both in now's location.
func PeriodKey(s Scope, now time.Time) string {
	if s == ScopeWeek {
		year, week := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
	return attendance.DateKey(now)
}

// ExpiresAt is the first instant after the period containing now.
func ExpiresAt(s Scope, now time.Time) time.Time {
	if s == ScopeWeek {
		_, end := attendance.Week.Bounds(now)
		return end.AddDate(0, 0, 1)
	}
	return attendance.StartOfDay(now).AddDate(0, 0, 1)
}

// Key identifies a flag.
type Key struct {
	Trigger Trigger
	Period  string
}

// KeyFor returns the key of t for the period containing now.
func KeyFor(t Trigger, now time.Time) Key {
	return Key{Trigger: t, Period: PeriodKey(t.Scope(), now)}
}

// State holds the persisted flag values. Missing keys read as zero, which
// is "not yet fired" for boolean flags and a zero overtime watermark.
type State map[Key]int

// Value returns the flag of t for the period containing now.
func (s State) Value(t Trigger, now time.Time) int {
	return s[KeyFor(t, now)]
}

// Fired reports whether t already fired in the period containing now.
func (s State) Fired(t Trigger, now time.Time) bool {
	return s.Value(t, now) > 0
}

// Apply returns a copy of s with writes applied.
func (s State) Apply(writes []Write) State {
	next := make(State, len(s)+len(writes))
	for k, v := range s {
		next[k] = v
	}
	for _, w := range writes {
		next[w.Key] = w.Value
	}
	return next
}

// Write is a flag value the caller must persist.
type Write struct {
	Key
	Value     int
	ExpiresAt time.Time
}
