package api

import (
	"context"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"worktime-tracker-backend/internal/attendance"
	"worktime-tracker-backend/internal/mw"
	"worktime-tracker-backend/internal/store"
)

// Tracker is the background evaluator as seen by the foreground API.
type Tracker interface {
	Policy() attendance.Policy
	Location() *time.Location
	LastChecked() time.Time
	ForceCheck()
	ScheduleCheck()
	PeriodStats(ctx context.Context, period attendance.Period, date time.Time) (*attendance.PeriodStats, error)
}

// Options tunes the foreground reader.
type Options struct {
	// StaleAfter is how old the mirrored data may get before a read asks
	// the tracker for a fresh cycle.
	StaleAfter time.Duration
	// LiveRefresh is the suggested client poll interval while clocked in.
	LiveRefresh time.Duration
	// CacheTTL applies to the period endpoints.
	CacheTTL time.Duration
	// RateLimit and RateBurst configure the per-client limiter.
	RateLimit float64
	RateBurst int
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	tracker Tracker
	webpush *webpush.Options
	cache   *mw.ResponseCache
	opts    Options
	now     func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, t Tracker, webpushOptions *webpush.Options, opts Options) *Handler {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	return &Handler{
		store:   s,
		tracker: t,
		webpush: webpushOptions,
		cache:   mw.NewResponseCache(opts.CacheTTL),
		opts:    opts,
		now:     time.Now,
	}
}

func (h *Handler) location() *time.Location {
	if h.tracker == nil {
		return time.Local
	}
	return h.tracker.Location()
}
