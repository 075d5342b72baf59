package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"worktime-tracker-backend/internal/attendance"
	"worktime-tracker-backend/internal/auth"
	"worktime-tracker-backend/internal/parse"
)

type halfDayRequest struct {
	Date    string `json:"date"`
	HalfDay *bool  `json:"isHalfDay" binding:"required"`
}

// dateParam returns raw as a date key, defaulting to today.
func (h *Handler) dateParam(raw string) (string, error) {
	if raw == "" {
		return attendance.DateKey(h.now().In(h.location())), nil
	}
	d, err := parse.Date(raw, h.location())
	if err != nil {
		return "", err
	}
	return attendance.DateKey(d), nil
}

// GetHalfDay returns the half-day toggle for ?date=, today by default.
func (h *Handler) GetHalfDay(c *gin.Context) {
	date, err := h.dateParam(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	halfDay, err := h.store.HalfDay(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "isHalfDay": halfDay})
}

// PutHalfDay sets the half-day toggle and schedules a debounced
// re-evaluation.
func (h *Handler) PutHalfDay(c *gin.Context) {
	var req halfDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	date, err := h.dateParam(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SetHalfDay(c.Request.Context(), date, *req.HalfDay); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.cache.Flush()
	h.tracker.ScheduleCheck()

	c.JSON(http.StatusOK, gin.H{"date": date, "isHalfDay": *req.HalfDay})
}

type settingsRequest struct {
	NotificationsEnabled *bool `json:"notificationsEnabled" binding:"required"`
}

// GetSettings returns the global preferences.
func (h *Handler) GetSettings(c *gin.Context) {
	enabled, err := h.store.NotificationsEnabled(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notificationsEnabled": enabled})
}

// PutSettings updates the global preferences.
func (h *Handler) PutSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.store.SetNotificationsEnabled(c.Request.Context(), *req.NotificationsEnabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notificationsEnabled": *req.NotificationsEnabled})
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// PutToken stores a portal access token handed over by the browser and
// starts a cycle with it.
func (h *Handler) PutToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	token := strings.TrimSpace(req.Token)
	if auth.Expired(token, h.now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is expired"})
		return
	}

	if err := h.store.SetAccessToken(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.cache.Flush()
	h.tracker.ForceCheck()
	c.Status(http.StatusNoContent)
}
