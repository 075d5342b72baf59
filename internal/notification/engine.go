package notification

import (
	"fmt"
	"math"
	"time"

	"worktime-tracker-backend/internal/attendance"
	"worktime-tracker-backend/internal/parse"
)

const (
	overtimeStepMinutes     = 30
	longSessionMinutes      = 9 * 60
	leaveApproachingMinutes = 30
)

// Inputs is everything one evaluation looks at.
type Inputs struct {
	Now          time.Time
	Policy       attendance.Policy
	TotalMinutes int
	HalfDay      bool
	ClockedIn    bool
	LeaveTimes   attendance.LeaveTimes

	// HoursNeededPerDay is the monthly pace, nil when unavailable.
	HoursNeededPerDay *float64
	// WeeklyWorked is this week's total in hours, nil when unknown.
	WeeklyWorked *float64

	// AuthExpired means no usable token was left after recovery. Only the
	// session trigger is evaluated then, since there is no fresh data.
	AuthExpired bool
}

// Notification is a user-visible alert.
type Notification struct {
	ID                 string  `json:"id"`
	Trigger            Trigger `json:"trigger"`
	Title              string  `json:"title"`
	Body               string  `json:"body"`
	RequireInteraction bool    `json:"requireInteraction"`
}

// Decision is the outcome of one evaluation. Writes are in trigger order
// and must all be persisted before the next evaluation.
type Decision struct {
	Firings []Notification
	Writes  []Write
}

// Evaluate decides which triggers fire given the inputs and the prior
// flags. It does no I/O; persisting Writes and delivering Firings is the
// caller's job.
func Evaluate(in Inputs, prior State) Decision {
	var d Decision
	now := in.Now

	if in.AuthExpired {
		if !prior.Fired(TriggerTokenExpired, now) {
			d.fire(now, TriggerTokenExpired, 1, Notification{
				Title:              "Session Expired ⚠️",
				Body:               "Please open the HR portal to refresh your session and resume tracking.",
				RequireInteraction: true,
			})
		}
		return d
	}

	target := in.Policy.Target(in.HalfDay)
	total := in.TotalMinutes

	if !prior.Fired(TriggerCompletion, now) && total >= target {
		body := fmt.Sprintf("You've completed your full day target (%s)! 🎉", attendance.FormatMinutes(target))
		if in.HalfDay {
			body = "You've completed your half day target! 🎉"
		}
		d.fire(now, TriggerCompletion, 1, Notification{Title: "Work Target Completed! 🎯", Body: body})
	}

	if !prior.Fired(TriggerAverageTarget, now) && in.HoursNeededPerDay != nil {
		needed := *in.HoursNeededPerDay
		if needed < in.Policy.AverageTargetHours && total >= int(math.Ceil(needed*60)) {
			d.fire(now, TriggerAverageTarget, 1, Notification{
				Title: "Daily Average Met! 🌟",
				Body: fmt.Sprintf("Great job today! 🎉 You've already hit your daily average. Feel free to wrap up whenever you're ready, your monthly %s average is still on track! 🥳",
					attendance.FormatHours(in.Policy.AverageTargetHours)),
			})
		}
	}

	if total > target {
		overtime := total - target
		bucket := overtime / overtimeStepMinutes * overtimeStepMinutes
		if bucket > 0 && bucket > prior.Value(TriggerOvertime, now) {
			d.fire(now, TriggerOvertime, bucket, Notification{
				Title: "Overtime Alert! ⏰",
				Body:  fmt.Sprintf("You've worked %s overtime. Consider taking a break or logging out.", overtimeText(overtime)),
			})
			if !prior.Fired(TriggerOvertimeFlag, now) {
				d.write(now, TriggerOvertimeFlag, 1)
			}
		}
	}

	if in.ClockedIn && !prior.Fired(TriggerLongSession, now) && total >= longSessionMinutes {
		d.fire(now, TriggerLongSession, 1, Notification{
			Title: "Long Work Session Alert! ⚠️",
			Body:  "You've been clocked in for 9+ hours. Remember to take breaks and prioritize your well-being!",
		})
	}

	if in.ClockedIn && !prior.Fired(TriggerLunchBreak, now) && now.Hour() == 12 && now.Minute() >= 30 {
		d.fire(now, TriggerLunchBreak, 1, Notification{
			Title: "Lunch Break! 🥗",
			Body:  "It's 12:30 PM. Time to grab some lunch and recharge! 🍱",
		})
	}

	if in.ClockedIn && !prior.Fired(TriggerTeaBreak, now) && now.Hour() >= 16 {
		d.fire(now, TriggerTeaBreak, 1, Notification{
			Title: "Tea Break! ☕",
			Body:  "It's 4:00 PM. Take a short break for tea/coffee! 🫖",
		})
	}

	if in.ClockedIn && !prior.Fired(TriggerLeaveApproaching, now) {
		if label, until, ok := untilLeave(in.LeaveTimes.Normal, now); ok && until > 0 && until <= leaveApproachingMinutes*time.Minute {
			d.fire(now, TriggerLeaveApproaching, 1, Notification{
				Title: "Leave Time Approaching! 🏠",
				Body:  fmt.Sprintf("Your leave time (%s) is approaching. Start wrapping up your work.", label),
			})
		}
	}

	if !prior.Fired(TriggerWeeklySummary, now) && now.Weekday() == time.Friday {
		body := "Another productive week completed! Have a relaxing weekend. 🎉"
		if in.WeeklyWorked != nil && *in.WeeklyWorked > 0 {
			body = fmt.Sprintf("This week's total: %s. Great job! Have a relaxing weekend. 🎉", attendance.FormatHours(*in.WeeklyWorked))
		}
		d.fire(now, TriggerWeeklySummary, 1, Notification{Title: "End of Week Summary 📈", Body: body})
	}

	return d
}

func (d *Decision) fire(now time.Time, t Trigger, value int, n Notification) {
	n.Trigger = t
	d.Firings = append(d.Firings, n)
	d.write(now, t, value)
}

func (d *Decision) write(now time.Time, t Trigger, value int) {
	d.Writes = append(d.Writes, Write{
		Key:       KeyFor(t, now),
		Value:     value,
		ExpiresAt: ExpiresAt(t.Scope(), now),
	})
}

// untilLeave renders the leave time the way it is shown to the user and
// reads it back as a clock time on today's date.
func untilLeave(lt attendance.LeaveTime, now time.Time) (string, time.Duration, bool) {
	if lt.Reached || lt.At.IsZero() {
		return "", 0, false
	}
	label := lt.String()
	at, err := parse.ClockOn(label, now)
	if err != nil {
		return "", 0, false
	}
	return label, at.Sub(now), true
}

func overtimeText(minutes int) string {
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
