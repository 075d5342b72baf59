package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period selects the aggregation window.
type Period string

const (
	Week  Period = "week"
	Month Period = "month"
)

var minutesPerHour = decimal.NewFromInt(60)

// Bounds returns the first and last calendar day of the period containing
// date. Weeks start on Monday.
func (p Period) Bounds(date time.Time) (start, end time.Time) {
	day := StartOfDay(date)
	if p == Month {
		start = day.AddDate(0, 0, 1-day.Day())
		return start, start.AddDate(0, 1, -1)
	}
	offset := (int(day.Weekday()) + 6) % 7
	start = day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// AggregateInput is everything the period aggregator needs.
type AggregateInput struct {
	Period             Period
	History            []Day
	Holidays           []Holiday
	Leaves             []Leave
	ManualHalfDayToday bool
	// Date selects the period; zero means the period containing Now.
	Date time.Time
	Now  time.Time
	// Summary, when set, overrides computed totals for a fully past period.
	Summary *RangeSummary
}

// PeriodStats is the aggregated view of a week or a month. Nil pointers
// mean "unavailable".
type PeriodStats struct {
	Period               Period   `json:"period"`
	Start                string   `json:"start"`
	End                  string   `json:"end"`
	IsPast               bool     `json:"isPast"`
	TotalWorkingDays     float64  `json:"totalWorkingDays"`
	CurrentWorkingDay    float64  `json:"currentWorkingDay"`
	RemainingWorkingDays float64  `json:"remainingWorkingDays"`
	AverageHours         *float64 `json:"averageHours"`
	HoursNeededPerDay    *float64 `json:"hoursNeededPerDay"`
	Holidays             []string `json:"holidays"`
	HolidayCount         int      `json:"holidayCount"`
	LeaveDayCount        float64  `json:"leaveDayCount"`
	TotalWorked          float64  `json:"totalWorked"`
	WeeklyTarget         *float64 `json:"weeklyTarget,omitempty"`
	Remaining            *float64 `json:"remaining,omitempty"`
}

// Aggregate computes working days, worked hours and the pace needed to
// keep the rolling daily average on target.
func Aggregate(p Policy, in AggregateInput) PeriodStats {
	now := in.Now
	loc := now.Location()
	today := StartOfDay(now)
	ref := in.Date
	if ref.IsZero() {
		ref = now
	}
	start, end := in.Period.Bounds(ref.In(loc))

	stats := PeriodStats{
		Period:   in.Period,
		Start:    DateKey(start),
		End:      DateKey(end),
		IsPast:   end.Before(today),
		Holidays: []string{},
	}

	inPeriod := func(t time.Time) (string, bool) {
		d := StartOfDay(t.In(loc))
		return DateKey(d), !d.Before(start) && !d.After(end)
	}

	holidays := make(map[string]bool)
	for _, h := range in.Holidays {
		if key, ok := inPeriod(h.Date); ok && !holidays[key] {
			holidays[key] = true
			stats.Holidays = append(stats.Holidays, key)
		}
	}
	stats.HolidayCount = len(stats.Holidays)

	leave := make(map[string]decimal.Decimal)
	leaveCount := decimal.Zero
	for _, l := range in.Leaves {
		if l.Delta >= 0 {
			continue
		}
		key, ok := inPeriod(l.Date)
		if !ok {
			continue
		}
		mag := decimal.NewFromFloat(l.Delta).Abs()
		leave[key] = leave[key].Add(mag)
		leaveCount = leaveCount.Add(mag)
	}
	stats.LeaveDayCount = leaveCount.InexactFloat64()

	one := decimal.NewFromInt(1)
	dayHours := decimal.NewFromFloat(p.AverageTargetHours)
	halfCap := decimal.NewFromFloat(p.HalfDayCapHours)
	total, current, weeklyTarget := decimal.Zero, decimal.Zero, decimal.Zero

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		key := DateKey(d)
		credit := decimal.Max(decimal.Zero, one.Sub(leave[key]))
		target := dayHours.Sub(leave[key].Mul(dayHours))
		if holidays[key] {
			credit, target = decimal.Zero, decimal.Zero
		} else if in.ManualHalfDayToday && d.Equal(today) && target.GreaterThan(halfCap) {
			target = halfCap
		}
		weeklyTarget = weeklyTarget.Add(decimal.Max(decimal.Zero, target))

		total = total.Add(credit)
		if d.Before(today) {
			current = current.Add(credit)
		}
	}
	remainingDays := total.Sub(current)

	pastHours, worked := decimal.Zero, decimal.Zero
	for _, day := range in.History {
		if _, ok := inPeriod(day.Date); !ok {
			continue
		}
		date := StartOfDay(day.Date.In(loc))
		effective := decimal.NewFromFloat(day.TotalEffectiveHours)
		switch {
		case date.Before(today):
			pastHours = pastHours.Add(effective)
			worked = worked.Add(effective)
		case date.Equal(today) && in.Period == Week:
			live := dayView(&day, now)
			worked = worked.Add(decimal.NewFromInt(int64(live.TotalMinutes)).Div(minutesPerHour))
		}
	}

	stats.TotalWorkingDays = total.InexactFloat64()
	stats.CurrentWorkingDay = current.InexactFloat64()
	stats.RemainingWorkingDays = remainingDays.InexactFloat64()
	stats.TotalWorked = worked.InexactFloat64()

	var average decimal.Decimal
	if current.IsPositive() {
		average = pastHours.DivRound(current, 6).Round(2)
		if average.IsPositive() {
			stats.AverageHours = floatPtr(average)
		}
	}
	if remainingDays.IsPositive() && average.IsPositive() {
		needed := total.Mul(dayHours).Sub(average.Mul(current)).DivRound(remainingDays, 6)
		stats.HoursNeededPerDay = floatPtr(decimal.Max(decimal.Zero, needed))
	}

	if in.Summary != nil && stats.IsPast {
		s := in.Summary
		worked = decimal.NewFromFloat(s.TotalEffectiveHours)
		stats.TotalWorked = s.TotalEffectiveHours
		stats.TotalWorkingDays = s.WorkingDays
		stats.CurrentWorkingDay = s.WorkingDays
		stats.RemainingWorkingDays = 0
		stats.AverageHours = nil
		if s.AverageHoursPerDay > 0 {
			stats.AverageHours = floatPtr(decimal.NewFromFloat(s.AverageHoursPerDay))
		}
		stats.HoursNeededPerDay = nil
	}

	if in.Period == Week {
		stats.WeeklyTarget = floatPtr(weeklyTarget)
		stats.Remaining = floatPtr(decimal.Max(decimal.Zero, weeklyTarget.Sub(worked)))
	}
	return stats
}

func floatPtr(d decimal.Decimal) *float64 {
	f := d.InexactFloat64()
	return &f
}
