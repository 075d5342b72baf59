package tracker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"worktime-tracker-backend/config"
	"worktime-tracker-backend/internal/attendance"
	"worktime-tracker-backend/internal/auth"
	"worktime-tracker-backend/internal/model"
	"worktime-tracker-backend/internal/notification"
	"worktime-tracker-backend/internal/portal"
	"worktime-tracker-backend/internal/store"
)

var (
	// ErrCycleInProgress is returned by CheckOnce while another cycle runs.
	ErrCycleInProgress = errors.New("tracker: check cycle already in progress")
	// ErrDataUnavailable means the cycle was skipped and the last snapshot
	// stays current.
	ErrDataUnavailable = errors.New("tracker: attendance data unavailable")
)

// Portal is the read-only upstream data source.
type Portal interface {
	FetchAttendance(ctx context.Context, token string, forDate time.Time) ([]attendance.Day, error)
	FetchHolidays(ctx context.Context, token string, forDate time.Time) ([]attendance.Holiday, error)
	FetchLeaveSummary(ctx context.Context, token string, date time.Time) ([]attendance.Leave, error)
	FetchRangeSummary(ctx context.Context, token string, from, to time.Time) (*attendance.RangeSummary, error)
}

// Dispatcher delivers notifications.
type Dispatcher interface {
	Dispatch(n notification.Notification)
}

// Service is the background evaluator. It fetches attendance data, derives
// metrics, runs the notification engine and mirrors the result into the
// store for the foreground reader.
type Service struct {
	cfg        *config.TrackerConfig
	policy     attendance.Policy
	loc        *time.Location
	store      store.Store
	portal     Portal
	tokens     *auth.TokenSource
	dispatcher Dispatcher

	running     sync.Mutex
	force       chan struct{}
	debouncer   *notification.Debouncer
	lastChecked atomic.Int64
	now         func() time.Time
}

// NewService creates a tracker. cfg.Tracker.Location must be set, which
// config.Load does.
func NewService(cfg *config.Config, st store.Store, p Portal, tokens *auth.TokenSource, d Dispatcher) *Service {
	loc := cfg.Tracker.Location
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		cfg:        &cfg.Tracker,
		policy:     cfg.Policy.Attendance(),
		loc:        loc,
		store:      st,
		portal:     p,
		tokens:     tokens,
		dispatcher: d,
		force:      make(chan struct{}, 1),
		now:        time.Now,
	}
	s.debouncer = notification.NewDebouncer(cfg.Tracker.Debounce, s.ForceCheck)
	return s
}

// Policy returns the targets the tracker evaluates against.
func (s *Service) Policy() attendance.Policy {
	return s.policy
}

// Location returns the timezone that defines calendar days.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Run checks immediately and then on every tick or force signal until ctx
// is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Tracker is disabled. Not starting.")
		return
	}
	log.Println("Starting tracker service...")
	defer s.debouncer.Stop()

	s.runCycle(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Tracker service shutting down.")
			return
		case <-timer.C:
			s.runCycle(ctx)
			timer.Reset(s.cfg.Interval)
		case <-s.force:
			log.Println("Force check requested.")
			s.runCycle(ctx)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	if err := s.CheckOnce(ctx); err != nil {
		log.Printf("Check cycle failed: %v", err)
	}
}

// ForceCheck asks Run for an immediate cycle. It never blocks; signals
// that arrive while one is pending are merged.
func (s *Service) ForceCheck() {
	select {
	case s.force <- struct{}{}:
	default:
	}
}

// ScheduleCheck requests a cycle once changes have settled, collapsing
// bursts such as repeated half-day toggles.
func (s *Service) ScheduleCheck() {
	s.debouncer.Trigger()
}

// LastChecked is when the last cycle completed with fresh data.
func (s *Service) LastChecked() time.Time {
	ns := s.lastChecked.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).In(s.loc)
}

// CheckOnce runs a single evaluation cycle.
func (s *Service) CheckOnce(ctx context.Context) error {
	if !s.running.TryLock() {
		return ErrCycleInProgress
	}
	defer s.running.Unlock()

	cycle := uuid.NewString()
	now := s.now().In(s.loc)
	log.Printf("Executing check cycle %s...", cycle)

	if n, err := s.store.PurgeExpiredFlags(ctx, now); err != nil {
		log.Printf("Warning: failed to purge expired notification flags: %v", err)
	} else if n > 0 {
		log.Printf("Purged %d expired notification flags", n)
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to read access token: %w", err)
	}
	if auth.Expired(token, now) {
		log.Printf("Cycle %s: access token missing or expired", cycle)
		return s.authFailed(ctx, token, now)
	}

	data, err := s.fetch(ctx, token, now)
	if errors.Is(err, portal.ErrUnauthorized) {
		log.Printf("Cycle %s: portal rejected the access token", cycle)
		return s.authFailed(ctx, token, now)
	}
	if err != nil {
		log.Printf("Cycle %s skipped: %v", cycle, err)
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	halfDay, err := s.store.HalfDay(ctx, attendance.DateKey(now))
	if err != nil {
		log.Printf("Warning: failed to read half-day flag, assuming full day: %v", err)
	}

	snap := s.compute(data, halfDay, now)
	if err := s.evaluate(ctx, notification.Inputs{
		Now:               now,
		Policy:            s.policy,
		TotalMinutes:      snap.TotalWorkedMinutes,
		HalfDay:           halfDay,
		ClockedIn:         snap.IsClockedIn,
		LeaveTimes:        snap.LeaveTimes,
		HoursNeededPerDay: snap.Monthly.HoursNeededPerDay,
		WeeklyWorked:      &snap.Weekly.TotalWorked,
	}); err != nil {
		return err
	}

	if err := s.persist(ctx, snap); err != nil {
		return err
	}
	s.lastChecked.Store(now.UnixNano())
	log.Printf("Check cycle %s finished: %s worked, clocked in: %t", cycle, snap.Metrics.TotalWorked, snap.IsClockedIn)
	return nil
}

// authFailed tries to recover a token. A recovered token is used from the
// next cycle on; without one the session-expired trigger is evaluated.
func (s *Service) authFailed(ctx context.Context, stale string, now time.Time) error {
	if s.tokens.Recover(ctx, stale, now) {
		log.Println("Recovered a fresh access token; it will be used on the next cycle.")
		return nil
	}
	return s.evaluate(ctx, notification.Inputs{Now: now, Policy: s.policy, AuthExpired: true})
}

type fetched struct {
	days     []attendance.Day
	holidays []attendance.Holiday
	leaves   []attendance.Leave
}

// fetch loads attendance and holidays in parallel, then the leave ledger.
// The result is ErrUnauthorized only when every failing request was
// rejected for authorization.
func (s *Service) fetch(ctx context.Context, token string, now time.Time) (*fetched, error) {
	var out fetched
	var attendanceErr, holidayErr error
	var g errgroup.Group
	g.Go(func() error {
		out.days, attendanceErr = s.portal.FetchAttendance(ctx, token, time.Time{})
		return attendanceErr
	})
	g.Go(func() error {
		out.holidays, holidayErr = s.portal.FetchHolidays(ctx, token, time.Time{})
		return holidayErr
	})
	if err := g.Wait(); err != nil {
		for _, e := range []error{attendanceErr, holidayErr} {
			if e != nil && !errors.Is(e, portal.ErrUnauthorized) {
				return nil, e
			}
		}
		return nil, err
	}

	leaves, err := s.portal.FetchLeaveSummary(ctx, token, now)
	if err != nil {
		log.Printf("Warning: leave summary unavailable, continuing without it: %v", err)
	}
	out.leaves = leaves
	return &out, nil
}

func (s *Service) compute(data *fetched, halfDay bool, now time.Time) *model.Snapshot {
	view := attendance.Today(data.days, now)
	aggregate := func(p attendance.Period) *attendance.PeriodStats {
		stats := attendance.Aggregate(s.policy, attendance.AggregateInput{
			Period:             p,
			History:            data.days,
			Holidays:           data.holidays,
			Leaves:             data.leaves,
			ManualHalfDayToday: halfDay,
			Now:                now,
		})
		return &stats
	}

	return &model.Snapshot{
		DayKey:             attendance.DateKey(now),
		DataHash:           hashOf(data, halfDay),
		TotalWorkedMinutes: view.TotalMinutes,
		IsClockedIn:        view.ClockedIn,
		IsHalfDay:          halfDay,
		Today:              view,
		Metrics:            attendance.DailyMetrics(s.policy, view.TotalMinutes, halfDay, view.ClockedIn, now),
		LeaveTimes:         attendance.LeaveTimesFor(s.policy, view.TotalMinutes, halfDay, now),
		Weekly:             aggregate(attendance.Week),
		Monthly:            aggregate(attendance.Month),
		ComputedAt:         now,
	}
}

// evaluate runs the engine against the persisted flags. Flags are saved
// before anything is delivered so a failed save cannot cause repeats.
func (s *Service) evaluate(ctx context.Context, in notification.Inputs) error {
	flags, err := s.store.ActiveFlags(ctx, in.Now)
	if err != nil {
		return fmt.Errorf("failed to load notification state: %w", err)
	}
	state := make(notification.State, len(flags))
	for _, f := range flags {
		state[notification.Key{Trigger: notification.Trigger(f.Trigger), Period: f.PeriodKey}] = f.Value
	}

	decision := notification.Evaluate(in, state)
	if len(decision.Writes) == 0 {
		return nil
	}

	rows := make([]model.NotificationFlag, 0, len(decision.Writes))
	for _, w := range decision.Writes {
		rows = append(rows, model.NotificationFlag{
			Trigger:   string(w.Key.Trigger),
			PeriodKey: w.Key.Period,
			Value:     w.Value,
			ExpiresAt: w.ExpiresAt,
		})
	}
	if err := s.store.SaveFlags(ctx, rows); err != nil {
		return fmt.Errorf("failed to save notification state: %w", err)
	}

	if len(decision.Firings) > 0 {
		log.Printf("Dispatching %d notifications", len(decision.Firings))
	}
	for _, n := range decision.Firings {
		s.dispatcher.Dispatch(n)
	}
	return nil
}

// persist writes snap unless the stored one was computed from the same
// data on the same day.
func (s *Service) persist(ctx context.Context, snap *model.Snapshot) error {
	prev, err := s.store.LoadSnapshot(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if prev != nil && prev.DataHash == snap.DataHash && prev.DayKey == snap.DayKey {
		return nil
	}
	return s.store.SaveSnapshot(ctx, snap)
}

// PeriodStats aggregates the week or month containing date, or the current
// one when date is zero. Periods entirely in the past use the portal's
// range summary when it is available.
func (s *Service) PeriodStats(ctx context.Context, period attendance.Period, date time.Time) (*attendance.PeriodStats, error) {
	now := s.now().In(s.loc)
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}
	if auth.Expired(token, now) {
		return nil, portal.ErrUnauthorized
	}

	ref := now
	if !date.IsZero() {
		ref = date.In(s.loc)
	}

	var (
		days     []attendance.Day
		holidays []attendance.Holiday
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		days, err = s.portal.FetchAttendance(gctx, token, date)
		return err
	})
	g.Go(func() (err error) {
		holidays, err = s.portal.FetchHolidays(gctx, token, date)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	leaves, err := s.portal.FetchLeaveSummary(ctx, token, ref)
	if err != nil {
		log.Printf("Warning: leave summary unavailable, continuing without it: %v", err)
	}

	halfDay, err := s.store.HalfDay(ctx, attendance.DateKey(now))
	if err != nil {
		log.Printf("Warning: failed to read half-day flag, assuming full day: %v", err)
	}

	in := attendance.AggregateInput{
		Period:             period,
		History:            days,
		Holidays:           holidays,
		Leaves:             leaves,
		ManualHalfDayToday: halfDay,
		Date:               date,
		Now:                now,
	}
	start, end := period.Bounds(ref)
	if end.Before(attendance.StartOfDay(now)) {
		summary, err := s.portal.FetchRangeSummary(ctx, token, start, end)
		if err != nil {
			log.Printf("Warning: range summary for %s..%s unavailable: %v", attendance.DateKey(start), attendance.DateKey(end), err)
		}
		in.Summary = summary
	}

	stats := attendance.Aggregate(s.policy, in)
	return &stats, nil
}

func hashOf(data *fetched, halfDay bool) string {
	payload, err := json.Marshal(struct {
		Days     []attendance.Day     `json:"days"`
		Holidays []attendance.Holiday `json:"holidays"`
		Leaves   []attendance.Leave   `json:"leaves"`
		HalfDay  bool                 `json:"halfDay"`
	}{data.days, data.holidays, data.leaves, halfDay})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
