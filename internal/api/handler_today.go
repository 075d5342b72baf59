package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"worktime-tracker-backend/internal/attendance"
	"worktime-tracker-backend/internal/store"
)

type intervalResponse struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration string `json:"duration"`
}

type todayResponse struct {
	attendance.Metrics
	Date            string             `json:"date"`
	IsHalfDay       bool               `json:"isHalfDay"`
	IsClockedIn     bool               `json:"isClockedIn"`
	NormalLeaveTime string             `json:"normalLeaveTime"`
	EarlyLeaveTime  string             `json:"earlyLeaveTime"`
	WorkIntervals   []intervalResponse `json:"workIntervals"`
	ClockedInSince  string             `json:"clockedInSince,omitempty"`
	Breaks          []intervalResponse `json:"breaks"`
	LastUpdated     time.Time          `json:"lastUpdated"`
	Stale           bool               `json:"stale"`
	RefreshSeconds  int                `json:"refreshSeconds,omitempty"`
}

// GetToday serves the live view of today. The total is extrapolated from
// the mirrored snapshot while clocked in; metrics are re-derived with the
// current half-day flag. Old data asks the tracker for a new cycle.
func (h *Handler) GetToday(c *gin.Context) {
	ctx := c.Request.Context()
	now := h.now().In(h.location())

	snap, err := h.store.LoadSnapshot(ctx)
	if errors.Is(err, store.ErrNotFound) {
		h.tracker.ForceCheck()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no attendance data yet"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	today := attendance.DateKey(now)
	halfDay, err := h.store.HalfDay(ctx, today)
	if err != nil {
		log.Printf("Warning: failed to read half-day flag: %v", err)
		halfDay = snap.IsHalfDay
	}

	lastUpdated := snap.UpdatedAt
	if checked := h.tracker.LastChecked(); checked.After(lastUpdated) {
		lastUpdated = checked
	}
	stale := snap.DayKey != today || (h.opts.StaleAfter > 0 && now.Sub(lastUpdated) > h.opts.StaleAfter)
	if stale {
		h.tracker.ForceCheck()
	}

	policy := h.tracker.Policy()
	total := attendance.Extrapolate(snap.Today, snap.ComputedAt, now)
	leave := attendance.LeaveTimesFor(policy, total, halfDay, now)

	resp := todayResponse{
		Metrics:         attendance.DailyMetrics(policy, total, halfDay, snap.IsClockedIn, now),
		Date:            snap.DayKey,
		IsHalfDay:       halfDay,
		IsClockedIn:     snap.IsClockedIn,
		NormalLeaveTime: leave.Normal.String(),
		EarlyLeaveTime:  leave.Early.String(),
		WorkIntervals:   make([]intervalResponse, 0, len(snap.Today.Pairing.Intervals)),
		Breaks:          make([]intervalResponse, 0, len(snap.Today.Pairing.Breaks)),
		LastUpdated:     lastUpdated,
		Stale:           stale,
	}
	for _, iv := range snap.Today.Pairing.Intervals {
		resp.WorkIntervals = append(resp.WorkIntervals, intervalResponse{
			Start:    clock(iv.Start, now),
			End:      clock(iv.End, now),
			Duration: iv.Duration(),
		})
	}
	for _, b := range snap.Today.Pairing.Breaks {
		resp.Breaks = append(resp.Breaks, intervalResponse{
			Start:    clock(b.Start, now),
			End:      clock(b.End, now),
			Duration: b.Duration(),
		})
	}
	if open := snap.Today.Pairing.Open; open != nil {
		resp.ClockedInSince = clock(open.Timestamp, now)
	}
	if snap.IsClockedIn && h.opts.LiveRefresh > 0 {
		resp.RefreshSeconds = int(h.opts.LiveRefresh / time.Second)
	}

	c.JSON(http.StatusOK, resp)
}

func clock(t, now time.Time) string {
	return attendance.FormatClock(t.In(now.Location()))
}
