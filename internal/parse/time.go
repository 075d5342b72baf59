package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clockRe = regexp.MustCompile(`(?i)^\s*(\d{1,2})\s*[:.]\s*(\d{2})\s*(am|pm)?\s*$`)

	// Layouts the portal has been seen to emit, most specific first.
	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
	}
)

// Timestamp parses a portal timestamp. Values without an offset are read
// as wall-clock time in loc.
func Timestamp(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %q", raw)
}

// Date parses a calendar date, with or without a time part, and returns
// local midnight of that date in loc. The date part is taken literally,
// ignoring any offset, since the portal reports attendance days as dates.
func Date(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if len(s) < len("2006-01-02") {
		return time.Time{}, fmt.Errorf("unable to parse date: %q", raw)
	}
	d, err := time.ParseInLocation("2006-01-02", s[:10], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date: %q", raw)
	}
	return d, nil
}

// Clock parses "5:45 pm", "12:05 AM" or "17:45" into a 24-hour hour and minute.
func Clock(raw string) (hour, minute int, err error) {
	m := clockRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, fmt.Errorf("unable to parse clock time: %q", raw)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if minute > 59 {
		return 0, 0, fmt.Errorf("unable to parse clock time: %q", raw)
	}

	switch strings.ToLower(m[3]) {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("unable to parse clock time: %q", raw)
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("unable to parse clock time: %q", raw)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return 0, 0, fmt.Errorf("unable to parse clock time: %q", raw)
		}
	}
	return hour, minute, nil
}

// ClockOn places a parsed clock string on the calendar day of ref.
func ClockOn(raw string, ref time.Time) (time.Time, error) {
	h, m, err := Clock(raw)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := ref.Date()
	return time.Date(y, mo, d, h, m, 0, 0, ref.Location()), nil
}
