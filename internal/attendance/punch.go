package attendance

import (
	"fmt"
	"time"
)

// WorkInterval is a closed in/out pair.
type WorkInterval struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"durationMinutes"`
}

// Duration renders the interval length as "8h 15m".
func (w WorkInterval) Duration() string {
	return FormatMinutes(w.DurationMinutes)
}

// BreakInterval is the gap between two work intervals.
type BreakInterval struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"durationMinutes"`
}

// Duration renders the break as "45 min", "1 hr" or "1 hr 5 min".
func (b BreakInterval) Duration() string {
	h, m := b.DurationMinutes/60, b.DurationMinutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%d hr %d min", h, m)
	case h > 0:
		return fmt.Sprintf("%d hr", h)
	default:
		return fmt.Sprintf("%d min", m)
	}
}

// Pairing is the result of pairing one day's punches.
type Pairing struct {
	Intervals []WorkInterval  `json:"intervals"`
	Open      *Punch          `json:"open,omitempty"`
	Breaks    []BreakInterval `json:"breaks"`
}

// Pair scans punches in order. A later In overwrites an unconsumed one,
// an Out without a held In is dropped, and a trailing In becomes Open.
// Punches with a zero timestamp are ignored.
func Pair(punches []Punch) Pairing {
	var (
		res   Pairing
		start *Punch
	)
	for i := range punches {
		p := punches[i]
		if p.Timestamp.IsZero() {
			continue
		}
		switch p.Direction {
		case In:
			start = &p
		case Out:
			if start == nil {
				continue
			}
			res.Intervals = append(res.Intervals, WorkInterval{
				Start:           start.Timestamp,
				End:             p.Timestamp,
				DurationMinutes: wholeMinutes(p.Timestamp.Sub(start.Timestamp)),
			})
			start = nil
		}
	}
	res.Open = start
	res.Breaks = breaksBetween(res.Intervals, res.Open)
	return res
}

func breaksBetween(intervals []WorkInterval, open *Punch) []BreakInterval {
	var breaks []BreakInterval
	add := func(from, to time.Time) {
		if gap := wholeMinutes(to.Sub(from)); gap > 0 {
			breaks = append(breaks, BreakInterval{Start: from, End: to, DurationMinutes: gap})
		}
	}
	for i := 0; i+1 < len(intervals); i++ {
		add(intervals[i].End, intervals[i+1].Start)
	}
	if open != nil && len(intervals) > 0 {
		add(intervals[len(intervals)-1].End, open.Timestamp)
	}
	return breaks
}

// wholeMinutes floors d to minutes, flooring negative durations away from zero.
func wholeMinutes(d time.Duration) int {
	m := d / time.Minute
	if d < 0 && d%time.Minute != 0 {
		m--
	}
	return int(m)
}
