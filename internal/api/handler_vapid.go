package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetVAPIDPublicKey returns the key browsers subscribe with, plus whether the
// daemon will actually deliver alerts so the UI can prompt the user.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push delivery is not configured"})
		return
	}

	enabled := false
	if h.store != nil {
		var err error
		if enabled, err = h.store.NotificationsEnabled(c.Request.Context()); err != nil {
			log.Printf("Failed to read notification setting: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read settings"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"public_key":           h.webpush.VAPIDPublicKey,
		"notificationsEnabled": enabled,
	})
}
