package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyMetrics(t *testing.T) {
	p := DefaultPolicy()
	now := at(15, 0)

	testCases := []struct {
		name          string
		total         int
		halfDay       bool
		clockedIn     bool
		remaining     string
		completed     bool
		close         bool
		status        StatusTier
		overtime      int
		estCompletion string
	}{
		{
			name: "Fresh morning", total: 60, clockedIn: true,
			remaining: "7h 15m", status: StatusUnder, estCompletion: "22:15",
		},
		{
			name: "Close to completion", total: 470, clockedIn: true,
			remaining: "0h 25m", close: true, status: StatusUnder, estCompletion: "15:25",
		},
		{
			name: "Exactly on target", total: 495,
			remaining: "0h 0m", completed: true, status: StatusOnTarget, estCompletion: "15:00",
		},
		{
			name: "Half day met", total: 270, halfDay: true,
			remaining: "0h 0m", completed: true, status: StatusOnTarget, estCompletion: "15:00",
		},
		{
			name: "Half day at ceiling", total: 285, halfDay: true,
			remaining: "0h 0m", completed: true, status: StatusOnTarget, overtime: 15, estCompletion: "14:45",
		},
		{
			name: "Full day at ceiling", total: 510,
			remaining: "0h 0m", completed: true, status: StatusOnTarget, overtime: 15, estCompletion: "14:45",
		},
		{
			name: "Full day past ceiling", total: 511,
			remaining: "0h 0m", completed: true, status: StatusOver, overtime: 16, estCompletion: "14:44",
		},
		{
			name: "Overtime", total: 520, clockedIn: true,
			remaining: "0h 0m", completed: true, status: StatusOver, overtime: 25, estCompletion: "14:35",
		},
		{
			name: "Not clocked in still estimates from now", total: 300,
			remaining: "3h 15m", status: StatusUnder, estCompletion: "18:15",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := DailyMetrics(p, tc.total, tc.halfDay, tc.clockedIn, now)
			assert.Equal(t, tc.remaining, m.Remaining)
			assert.Equal(t, tc.completed, m.IsCompleted)
			assert.Equal(t, tc.close, m.IsCloseToCompletion)
			assert.Equal(t, tc.status, m.Status)
			assert.Equal(t, tc.overtime, m.OvertimeMinutes)
			assert.Equal(t, tc.overtime > 0, m.IsOvertime)
			assert.Equal(t, tc.estCompletion, m.EstCompletion)
			assert.Equal(t, FormatMinutes(tc.total), m.TotalWorked)
		})
	}
}

func TestDailyMetrics_IsPure(t *testing.T) {
	p := DefaultPolicy()
	now := at(11, 11)
	assert.Equal(t, DailyMetrics(p, 312, false, true, now), DailyMetrics(p, 312, false, true, now))
}

func TestDailyMetrics_Monotonic(t *testing.T) {
	p := DefaultPolicy()
	now := at(12, 0)
	prev := DailyMetrics(p, 0, false, true, now)
	for total := 1; total <= 700; total++ {
		m := DailyMetrics(p, total, false, true, now)
		require.LessOrEqual(t, m.RemainingMinutes, prev.RemainingMinutes, "remaining grew at %d", total)
		require.GreaterOrEqual(t, m.OvertimeMinutes, prev.OvertimeMinutes, "overtime shrank at %d", total)
		prev = m
	}
}

func TestDailyMetrics_BoundaryAtTarget(t *testing.T) {
	m := DailyMetrics(DefaultPolicy(), 495, false, true, at(17, 15))
	assert.True(t, m.IsCompleted)
	assert.False(t, m.IsOvertime)
	assert.Equal(t, 0, m.RemainingMinutes)
}

func TestLeaveTimesFor(t *testing.T) {
	p := DefaultPolicy()
	now := at(13, 0)

	lt := LeaveTimesFor(p, 300, false, now)
	assert.False(t, lt.Normal.Reached)
	assert.Equal(t, "4:15 pm", lt.Normal.String())
	assert.Equal(t, "3:00 pm", lt.Early.String())

	lt = LeaveTimesFor(p, 430, false, now)
	assert.Equal(t, "2:05 pm", lt.Normal.String())
	assert.True(t, lt.Early.Reached)
	assert.Equal(t, "-", lt.Early.String())

	lt = LeaveTimesFor(p, 200, true, now)
	assert.Equal(t, "2:10 pm", lt.Normal.String())
	assert.Equal(t, "1:10 pm", lt.Early.String())

	morning := LeaveTimesFor(p, 0, true, time.Date(2026, time.October, 19, 6, 0, 0, 0, testLoc))
	assert.Equal(t, "10:30 am", morning.Normal.String())
}
