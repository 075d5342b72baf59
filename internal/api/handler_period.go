package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"worktime-tracker-backend/internal/attendance"
	"worktime-tracker-backend/internal/parse"
	"worktime-tracker-backend/internal/portal"
)

// GetWeek serves the weekly aggregate. ?date=YYYY-MM-DD selects another week.
func (h *Handler) GetWeek(c *gin.Context) {
	h.periodStats(c, attendance.Week)
}

// GetMonth serves the monthly aggregate. ?date=YYYY-MM-DD selects another month.
func (h *Handler) GetMonth(c *gin.Context) {
	h.periodStats(c, attendance.Month)
}

func (h *Handler) periodStats(c *gin.Context, period attendance.Period) {
	var date time.Time
	if raw := c.Query("date"); raw != "" {
		d, err := parse.Date(raw, h.location())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		date = d
	}

	stats, err := h.tracker.PeriodStats(c.Request.Context(), period, date)
	switch {
	case errors.Is(err, portal.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "portal session expired"})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// PostCheck asks the tracker for an immediate cycle.
func (h *Handler) PostCheck(c *gin.Context) {
	h.tracker.ForceCheck()
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}
