package attendance

import "time"

// StatusTier classifies worked time against the day target.
type StatusTier string

const (
	StatusUnder    StatusTier = "under"
	StatusOnTarget StatusTier = "on-target"
	StatusOver     StatusTier = "over"
)

// Metrics is the today view derived from worked minutes.
type Metrics struct {
	TotalWorkedMinutes  int        `json:"totalWorkedMinutes"`
	TotalWorked         string     `json:"totalWorked"`
	TargetMinutes       int        `json:"targetMinutes"`
	RemainingMinutes    int        `json:"remainingMinutes"`
	Remaining           string     `json:"remaining"`
	EstCompletionAt     time.Time  `json:"estCompletionAt"`
	EstCompletion       string     `json:"estCompletion"`
	IsCompleted         bool       `json:"isCompleted"`
	IsCloseToCompletion bool       `json:"isCloseToCompletion"`
	Status              StatusTier `json:"totalWorkedStatus"`
	IsOvertime          bool       `json:"isOvertime"`
	OvertimeMinutes     int        `json:"overtimeMinutes"`
}

// DailyMetrics derives the today view. It is a pure function of its inputs.
func DailyMetrics(p Policy, totalMinutes int, halfDay, clockedIn bool, now time.Time) Metrics {
	target := p.Target(halfDay)
	remaining := target - totalMinutes
	if remaining < 0 {
		remaining = 0
	}
	overtime := 0
	if totalMinutes > target {
		overtime = totalMinutes - target
	}

	status := StatusOver
	switch {
	case totalMinutes < target:
		status = StatusUnder
	case totalMinutes <= p.Ceiling(halfDay):
		status = StatusOnTarget
	}

	// Not clocked in estimates "if you resumed now", same as clocked in.
	est := now.Add(time.Duration(remaining) * time.Minute)
	if overtime > 0 {
		est = now.Add(-time.Duration(overtime) * time.Minute)
	}

	return Metrics{
		TotalWorkedMinutes:  totalMinutes,
		TotalWorked:         FormatMinutes(totalMinutes),
		TargetMinutes:       target,
		RemainingMinutes:    remaining,
		Remaining:           FormatMinutes(remaining),
		EstCompletionAt:     est,
		EstCompletion:       FormatClock(est),
		IsCompleted:         remaining == 0,
		IsCloseToCompletion: remaining > 0 && remaining <= p.CloseToCompletion,
		Status:              status,
		IsOvertime:          overtime > 0,
		OvertimeMinutes:     overtime,
	}
}

// LeaveTime is a clock time at which a target is met.
type LeaveTime struct {
	Reached bool      `json:"reached"`
	At      time.Time `json:"at,omitempty"`
}

// String renders "5:45 pm", or "-" once the target is already met.
func (l LeaveTime) String() string {
	if l.Reached {
		return "-"
	}
	return l.At.Format(ClockLayout)
}

// LeaveTimes holds the normal and early leave times.
type LeaveTimes struct {
	Normal LeaveTime `json:"normalLeaveTime"`
	Early  LeaveTime `json:"earlyLeaveTime"`
}

// LeaveTimesFor computes when the normal and the early target are met.
func LeaveTimesFor(p Policy, totalMinutes int, halfDay bool, now time.Time) LeaveTimes {
	return LeaveTimes{
		Normal: leaveTimeFor(p.Target(halfDay), totalMinutes, now),
		Early:  leaveTimeFor(p.EarlyTarget(halfDay), totalMinutes, now),
	}
}

func leaveTimeFor(target, totalMinutes int, now time.Time) LeaveTime {
	if totalMinutes >= target {
		return LeaveTime{Reached: true}
	}
	return LeaveTime{At: now.Add(time.Duration(target-totalMinutes) * time.Minute)}
}
