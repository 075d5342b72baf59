package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ClockLayout is the 12-hour layout used for leave times.
const ClockLayout = "3:04 pm"

// FormatMinutes renders minutes as "8h 15m". Negative input renders as 0.
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// ParseMinutes is the inverse of FormatMinutes.
func ParseMinutes(s string) (int, error) {
	var h, m int
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty duration")
	}
	for _, f := range fields {
		var (
			unit string
			dst  *int
		)
		switch {
		case strings.HasSuffix(f, "h"):
			unit, dst = "h", &h
		case strings.HasSuffix(f, "m"):
			unit, dst = "m", &m
		default:
			return 0, fmt.Errorf("invalid duration component %q", f)
		}
		n, err := strconv.Atoi(strings.TrimSuffix(f, unit))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration component %q", f)
		}
		*dst = n
	}
	return h*60 + m, nil
}

// FormatClock renders t as "17:45".
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}

// FormatHours renders decimal hours as "7h 30m", flooring to the minute.
func FormatHours(hours float64) string {
	return FormatMinutes(int(decimal.NewFromFloat(hours).Mul(minutesPerHour).Floor().IntPart()))
}
