package attendance

import "time"

// Accumulate sums closed intervals and, when a punch is still open, the
// whole minutes elapsed since it up to now. An open punch in the future
// contributes nothing.
func Accumulate(intervals []WorkInterval, open *Punch, now time.Time) (totalMinutes int, clockedIn bool) {
	for _, iv := range intervals {
		totalMinutes += iv.DurationMinutes
	}
	if open != nil {
		if live := wholeMinutes(now.Sub(open.Timestamp)); live > 0 {
			totalMinutes += live
		}
		clockedIn = true
	}
	return totalMinutes, clockedIn
}

// TodayView is the live state of the most recent attendance record.
type TodayView struct {
	Day          *Day    `json:"day,omitempty"`
	Pairing      Pairing `json:"pairing"`
	TotalMinutes int     `json:"totalMinutes"`
	ClockedIn    bool    `json:"clockedIn"`
}

// Today pairs and accumulates the last record of days, which the portal
// returns in chronological order with today last.
func Today(days []Day, now time.Time) TodayView {
	if len(days) == 0 {
		return TodayView{}
	}
	last := days[len(days)-1]
	return dayView(&last, now)
}

// DayOf returns the view for the record dated on now's calendar day, if any.
func DayOf(days []Day, now time.Time) (TodayView, bool) {
	for i := range days {
		if SameDay(days[i].Date, now, now.Location()) {
			d := days[i]
			return dayView(&d, now), true
		}
	}
	return TodayView{}, false
}

func dayView(d *Day, now time.Time) TodayView {
	p := Pair(d.Punches)
	total, in := Accumulate(p.Intervals, p.Open, now)
	return TodayView{Day: d, Pairing: p, TotalMinutes: total, ClockedIn: in}
}

// Extrapolate advances a stored view to now while clocked in. The open
// session is re-accumulated from its punch so elapsed time is floored once;
// views without an open punch fall back to adding whole minutes since
// computedAt. The result never drops below the stored total.
func Extrapolate(view TodayView, computedAt, now time.Time) int {
	if !view.ClockedIn || now.Before(computedAt) {
		return view.TotalMinutes
	}
	if view.Pairing.Open != nil {
		if total, _ := Accumulate(view.Pairing.Intervals, view.Pairing.Open, now); total > view.TotalMinutes {
			return total
		}
		return view.TotalMinutes
	}
	if computedAt.IsZero() {
		return view.TotalMinutes
	}
	return view.TotalMinutes + wholeMinutes(now.Sub(computedAt))
}
