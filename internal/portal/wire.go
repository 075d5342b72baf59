package portal

import (
	"fmt"
	"log"
	"time"

	"worktime-tracker-backend/internal/attendance"
	"worktime-tracker-backend/internal/parse"
)

// envelope models the top-level structure of every portal response.
type envelope[T any] struct {
	Data *T `json:"data"`
}

type attendanceRecord struct {
	AttendanceDate      string        `json:"attendanceDate"`
	TimeEntries         []timeEntry   `json:"timeEntries"`
	LeaveDayStatuses    []int         `json:"leaveDayStatuses"`
	LeaveDetails        []leaveDetail `json:"leaveDetails"`
	TotalEffectiveHours *float64      `json:"totalEffectiveHours"`
}

type timeEntry struct {
	ActualTimestamp string `json:"actualTimestamp"`
	Timestamp       string `json:"timestamp"`
	PunchStatus     *int   `json:"punchStatus"`
}

type leaveDetail struct {
	LeaveTypeName  string `json:"leaveTypeName"`
	LeaveDayStatus int    `json:"leaveDayStatus"`
}

type holidayRecord struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

type leaveSummary struct {
	LeaveHistory []leaveHistoryEntry `json:"leaveHistory"`
}

type leaveHistoryEntry struct {
	Date   string `json:"date"`
	Change struct {
		Duration *float64 `json:"duration"`
	} `json:"change"`
}

type rangeSummary struct {
	TotalEffectiveHours float64 `json:"totalEffectiveHours"`
	WorkingDays         float64 `json:"workingDays"`
	AverageHoursPerDay  float64 `json:"averageHoursPerDay"`
}

// toDay validates one attendance record. A record without a usable date is
// rejected; malformed punches inside a valid record are dropped.
func (r attendanceRecord) toDay(loc *time.Location) (attendance.Day, error) {
	date, err := parse.Date(r.AttendanceDate, loc)
	if err != nil {
		return attendance.Day{}, fmt.Errorf("attendance record: %w", err)
	}

	day := attendance.Day{Date: date}
	for _, e := range r.TimeEntries {
		p, err := e.toPunch(loc)
		if err != nil {
			log.Printf("Warning: dropping punch on %s: %v", r.AttendanceDate, err)
			continue
		}
		day.Punches = append(day.Punches, p)
	}
	for _, l := range r.LeaveDetails {
		if l.LeaveTypeName != "" {
			day.LeaveTypes = append(day.LeaveTypes, l.LeaveTypeName)
		}
	}
	if r.TotalEffectiveHours != nil && *r.TotalEffectiveHours > 0 {
		day.TotalEffectiveHours = *r.TotalEffectiveHours
	}
	return day, nil
}

func (e timeEntry) toPunch(loc *time.Location) (attendance.Punch, error) {
	if e.PunchStatus == nil {
		return attendance.Punch{}, fmt.Errorf("missing punch status")
	}
	dir := attendance.Direction(*e.PunchStatus)
	if dir != attendance.In && dir != attendance.Out {
		return attendance.Punch{}, fmt.Errorf("unknown punch status %d", *e.PunchStatus)
	}

	raw := e.ActualTimestamp
	if raw == "" {
		raw = e.Timestamp
	}
	ts, err := parse.Timestamp(raw, loc)
	if err != nil {
		return attendance.Punch{}, err
	}
	return attendance.Punch{Timestamp: ts, Direction: dir}, nil
}

func (h holidayRecord) toHoliday(loc *time.Location) (attendance.Holiday, error) {
	date, err := parse.Date(h.Date, loc)
	if err != nil {
		return attendance.Holiday{}, fmt.Errorf("holiday: %w", err)
	}
	return attendance.Holiday{Date: date, Name: h.Name}, nil
}

func (l leaveHistoryEntry) toLeave(loc *time.Location) (attendance.Leave, error) {
	date, err := parse.Date(l.Date, loc)
	if err != nil {
		return attendance.Leave{}, fmt.Errorf("leave entry: %w", err)
	}
	if l.Change.Duration == nil {
		return attendance.Leave{}, fmt.Errorf("leave entry on %s has no duration", l.Date)
	}
	return attendance.Leave{Date: date, Delta: *l.Change.Duration}, nil
}
