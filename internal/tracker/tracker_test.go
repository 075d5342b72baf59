package tracker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktime-tracker-backend/config"
	"worktime-tracker-backend/internal/attendance"
	"worktime-tracker-backend/internal/auth"
	"worktime-tracker-backend/internal/db"
	"worktime-tracker-backend/internal/notification"
	"worktime-tracker-backend/internal/portal"
	"worktime-tracker-backend/internal/store"
)

var testLoc = time.FixedZone("IST", 5*3600+1800)

// October 19, 2026 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.October, day, hour, minute, 0, 0, testLoc)
}

func punch(dir attendance.Direction, hour, minute int) attendance.Punch {
	return attendance.Punch{Timestamp: at(19, hour, minute), Direction: dir}
}

func monday(punches ...attendance.Punch) []attendance.Day {
	return []attendance.Day{{Date: at(19, 0, 0), Punches: punches}}
}

// fakePortal is a mock implementation of the Portal interface.
type fakePortal struct {
	mu            sync.Mutex
	days          []attendance.Day
	holidays      []attendance.Holiday
	summary       *attendance.RangeSummary
	attendanceErr error
	holidayErr    error
	leaveErr      error
	summaryRanges [][2]string
}

func (p *fakePortal) setDays(days []attendance.Day) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.days = days
}

func (p *fakePortal) FetchAttendance(ctx context.Context, token string, forDate time.Time) ([]attendance.Day, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.days, p.attendanceErr
}

func (p *fakePortal) FetchHolidays(ctx context.Context, token string, forDate time.Time) ([]attendance.Holiday, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holidays, p.holidayErr
}

func (p *fakePortal) FetchLeaveSummary(ctx context.Context, token string, date time.Time) ([]attendance.Leave, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return nil, p.leaveErr
}

func (p *fakePortal) FetchRangeSummary(ctx context.Context, token string, from, to time.Time) (*attendance.RangeSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaryRanges = append(p.summaryRanges, [2]string{attendance.DateKey(from), attendance.DateKey(to)})
	return p.summary, nil
}

// recorder collects dispatched notifications.
type recorder struct {
	mu  sync.Mutex
	got []notification.Notification
}

func (r *recorder) Dispatch(n notification.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) triggers() []notification.Trigger {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Trigger
	for _, n := range r.got {
		out = append(out, n.Trigger)
	}
	return out
}

func newTestService(t *testing.T, p *fakePortal, now time.Time, recoverer auth.Recoverer) (*Service, store.Store, *recorder) {
	t.Helper()
	gormDB, err := db.Init(&config.DatabaseConfig{DSN: "file::memory:"})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	st := store.NewGormStore(gormDB)
	cfg := &config.Config{
		Tracker: config.TrackerConfig{
			Enabled:  true,
			Interval: time.Hour,
			Location: testLoc,
			Debounce: 10 * time.Millisecond,
		},
	}
	rec := &recorder{}
	svc := NewService(cfg, st, p, auth.NewTokenSource(st, recoverer, "tok"), rec)
	svc.now = func() time.Time { return now }
	return svc, st, rec
}

func TestService_CheckOnce_FiresAndMirrors(t *testing.T) {
	ctx := context.Background()
	p := &fakePortal{days: monday(punch(attendance.In, 8, 30), punch(attendance.Out, 17, 0))}
	svc, st, rec := newTestService(t, p, at(19, 17, 5), nil)

	require.NoError(t, svc.CheckOnce(ctx))
	assert.Equal(t, []notification.Trigger{notification.TriggerCompletion}, rec.triggers())
	assert.True(t, at(19, 17, 5).Equal(svc.LastChecked()))

	first, err := st.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", first.DayKey)
	assert.Equal(t, 510, first.TotalWorkedMinutes)
	assert.False(t, first.IsClockedIn)
	assert.True(t, first.Metrics.IsCompleted)
	assert.Equal(t, attendance.StatusOnTarget, first.Metrics.Status, "510 is the full-day ceiling")
	require.NotNil(t, first.Weekly)
	assert.Equal(t, 8.5, first.Weekly.TotalWorked)

	require.NoError(t, svc.CheckOnce(ctx))
	assert.Len(t, rec.triggers(), 1, "persisted flags stop repeats")
	second, err := st.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt), "unchanged data is not rewritten")

	p.setDays(monday(punch(attendance.In, 8, 30), punch(attendance.Out, 17, 0), punch(attendance.In, 17, 2)))
	require.NoError(t, svc.CheckOnce(ctx))
	third, err := st.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 513, third.TotalWorkedMinutes)
	assert.True(t, third.IsClockedIn)
	assert.NotEqual(t, first.DataHash, third.DataHash)
}

func TestService_CheckOnce_ClockedIn(t *testing.T) {
	p := &fakePortal{days: monday(punch(attendance.In, 9, 0))}
	svc, st, rec := newTestService(t, p, at(19, 12, 45), nil)

	require.NoError(t, svc.CheckOnce(context.Background()))
	assert.Equal(t, []notification.Trigger{notification.TriggerLunchBreak}, rec.triggers())

	snap, err := st.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 225, snap.TotalWorkedMinutes)
	assert.True(t, snap.IsClockedIn)
	assert.True(t, at(19, 12, 45).Equal(snap.ComputedAt))
}

func TestService_CheckOnce_HalfDay(t *testing.T) {
	ctx := context.Background()
	p := &fakePortal{days: monday(punch(attendance.In, 9, 0), punch(attendance.Out, 13, 45))}
	svc, st, rec := newTestService(t, p, at(19, 14, 0), nil)
	require.NoError(t, st.SetHalfDay(ctx, "2026-10-19", true))

	require.NoError(t, svc.CheckOnce(ctx))
	require.Len(t, rec.got, 1)
	assert.Equal(t, "You've completed your half day target! 🎉", rec.got[0].Body)

	snap, err := st.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.IsHalfDay)
	assert.Equal(t, attendance.StatusOnTarget, snap.Metrics.Status)
}

func TestService_CheckOnce_AuthExpired(t *testing.T) {
	unauthorized := fmt.Errorf("%w: 401", portal.ErrUnauthorized)

	t.Run("No recovery", func(t *testing.T) {
		ctx := context.Background()
		p := &fakePortal{attendanceErr: unauthorized, holidayErr: unauthorized}
		svc, st, rec := newTestService(t, p, at(19, 10, 0), nil)

		require.NoError(t, svc.CheckOnce(ctx))
		require.Len(t, rec.got, 1)
		assert.Equal(t, notification.TriggerTokenExpired, rec.got[0].Trigger)
		assert.True(t, rec.got[0].RequireInteraction)

		require.NoError(t, svc.CheckOnce(ctx))
		assert.Len(t, rec.got, 1, "session alert fires once per day")

		_, err := st.LoadSnapshot(ctx)
		assert.ErrorIs(t, err, store.ErrNotFound, "no snapshot without fresh data")
		assert.True(t, svc.LastChecked().IsZero())
	})

	t.Run("Recovered token", func(t *testing.T) {
		ctx := context.Background()
		p := &fakePortal{attendanceErr: unauthorized, holidayErr: unauthorized}
		svc, st, rec := newTestService(t, p, at(19, 10, 0), &staticRecoverer{token: "fresh-token"})

		require.NoError(t, svc.CheckOnce(ctx))
		assert.Empty(t, rec.got)
		token, err := st.AccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "fresh-token", token)
	})

	t.Run("Mixed failures are not an auth problem", func(t *testing.T) {
		p := &fakePortal{attendanceErr: unauthorized, holidayErr: fmt.Errorf("%w: 502", portal.ErrUnavailable)}
		svc, _, rec := newTestService(t, p, at(19, 10, 0), nil)

		err := svc.CheckOnce(context.Background())
		assert.ErrorIs(t, err, ErrDataUnavailable)
		assert.Empty(t, rec.got)
	})
}

type staticRecoverer struct {
	token string
}

func (r *staticRecoverer) Recover(ctx context.Context) (string, error) {
	return r.token, nil
}

func TestService_CheckOnce_Unavailable(t *testing.T) {
	ctx := context.Background()
	p := &fakePortal{attendanceErr: fmt.Errorf("%w: timeout", portal.ErrUnavailable)}
	svc, st, rec := newTestService(t, p, at(19, 10, 0), nil)

	err := svc.CheckOnce(ctx)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.Empty(t, rec.got)
	_, err = st.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_CheckOnce_LeaveSummaryIsOptional(t *testing.T) {
	p := &fakePortal{
		days:     monday(punch(attendance.In, 9, 0)),
		leaveErr: fmt.Errorf("%w: 500", portal.ErrUnavailable),
	}
	svc, st, _ := newTestService(t, p, at(19, 10, 0), nil)

	require.NoError(t, svc.CheckOnce(context.Background()))
	_, err := st.LoadSnapshot(context.Background())
	assert.NoError(t, err)
}

func TestService_CheckOnce_Guard(t *testing.T) {
	svc, _, _ := newTestService(t, &fakePortal{}, at(19, 10, 0), nil)

	svc.running.Lock()
	assert.ErrorIs(t, svc.CheckOnce(context.Background()), ErrCycleInProgress)
	svc.running.Unlock()
}

func TestService_ForceCheck(t *testing.T) {
	svc, _, _ := newTestService(t, &fakePortal{}, at(19, 10, 0), nil)

	svc.ForceCheck()
	svc.ForceCheck()
	svc.ForceCheck()
	assert.Len(t, svc.force, 1, "pending signals are merged")
}

func TestService_ScheduleCheck(t *testing.T) {
	svc, _, _ := newTestService(t, &fakePortal{}, at(19, 10, 0), nil)

	svc.ScheduleCheck()
	svc.ScheduleCheck()
	assert.Eventually(t, func() bool { return len(svc.force) == 1 }, time.Second, 5*time.Millisecond)
}

func TestService_Run(t *testing.T) {
	p := &fakePortal{days: monday(punch(attendance.In, 9, 0), punch(attendance.Out, 10, 0))}
	svc, st, _ := newTestService(t, p, at(19, 11, 0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	totalIs := func(minutes int) func() bool {
		return func() bool {
			snap, err := st.LoadSnapshot(context.Background())
			return err == nil && snap.TotalWorkedMinutes == minutes
		}
	}
	assert.Eventually(t, totalIs(60), time.Second, 10*time.Millisecond, "runs a cycle on start")

	p.setDays(monday(punch(attendance.In, 9, 0), punch(attendance.Out, 10, 30)))
	svc.ForceCheck()
	assert.Eventually(t, totalIs(90), time.Second, 10*time.Millisecond, "force check runs before the next tick")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestService_PeriodStats(t *testing.T) {
	p := &fakePortal{
		days:    monday(punch(attendance.In, 9, 0), punch(attendance.Out, 10, 0)),
		summary: &attendance.RangeSummary{TotalEffectiveHours: 170.5, WorkingDays: 21, AverageHoursPerDay: 8.12},
	}
	svc, _, _ := newTestService(t, p, at(19, 11, 0), nil)

	t.Run("Past month uses the range summary", func(t *testing.T) {
		stats, err := svc.PeriodStats(context.Background(), attendance.Month, time.Date(2026, time.September, 10, 0, 0, 0, 0, testLoc))
		require.NoError(t, err)
		assert.True(t, stats.IsPast)
		assert.Equal(t, "2026-09-01", stats.Start)
		assert.Equal(t, 170.5, stats.TotalWorked)
		assert.Equal(t, 21.0, stats.TotalWorkingDays)
		assert.Nil(t, stats.HoursNeededPerDay)
		assert.Equal(t, [][2]string{{"2026-09-01", "2026-09-30"}}, p.summaryRanges)
	})

	t.Run("Current week is computed", func(t *testing.T) {
		stats, err := svc.PeriodStats(context.Background(), attendance.Week, time.Time{})
		require.NoError(t, err)
		assert.False(t, stats.IsPast)
		assert.Equal(t, "2026-10-19", stats.Start)
		assert.Equal(t, 1.0, stats.TotalWorked)
		require.NotNil(t, stats.WeeklyTarget)
		assert.Len(t, p.summaryRanges, 1, "no range summary for an open period")
	})

	t.Run("Unauthorized", func(t *testing.T) {
		p.mu.Lock()
		p.attendanceErr = fmt.Errorf("%w: 403", portal.ErrUnauthorized)
		p.mu.Unlock()

		_, err := svc.PeriodStats(context.Background(), attendance.Week, time.Time{})
		assert.ErrorIs(t, err, portal.ErrUnauthorized)
	})
}
