package attendance

import "time"

// Direction is the punch direction reported by the portal.
type Direction int

const (
	In  Direction = 0
	Out Direction = 1
)

func (d Direction) String() string {
	if d == Out {
		return "out"
	}
	return "in"
}

// Punch is a single clock-in or clock-out event.
type Punch struct {
	Timestamp time.Time `json:"timestamp"`
	Direction Direction `json:"direction"`
}

// Day is one attendance record as reported by the portal.
// TotalEffectiveHours is authoritative for days that are already over.
type Day struct {
	Date                time.Time `json:"date"`
	Punches             []Punch   `json:"punches"`
	LeaveTypes          []string  `json:"leaveTypes,omitempty"`
	TotalEffectiveHours float64   `json:"totalEffectiveHours"`
}

// Holiday marks a company holiday.
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name,omitempty"`
}

// Leave is a leave ledger entry. A negative Delta is leave taken, its
// magnitude being the fraction of the day (1 = full day, 0.5 = half day).
type Leave struct {
	Date  time.Time `json:"date"`
	Delta float64   `json:"delta"`
}

// RangeSummary is the portal's own summary for a closed date range.
type RangeSummary struct {
	TotalEffectiveHours float64 `json:"totalEffectiveHours"`
	WorkingDays         float64 `json:"workingDays"`
	AverageHoursPerDay  float64 `json:"averageHoursPerDay"`
}

// DateKey formats t as a calendar date in its own location.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DateKey(a.In(loc)) == DateKey(b.In(loc))
}
