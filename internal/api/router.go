package api

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"worktime-tracker-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	limit, burst := h.opts.RateLimit, h.opts.RateBurst
	if limit <= 0 {
		limit = 10
	}
	if burst <= 0 {
		burst = 5
	}
	rateLimiter := mw.RateLimiter(rate.Limit(limit), burst)
	caching := h.cache.Handler()

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/today", h.GetToday)
		api.GET("/week", caching, h.GetWeek)
		api.GET("/month", caching, h.GetMonth)
		api.POST("/check", h.PostCheck)

		api.GET("/halfday", h.GetHalfDay)
		api.PUT("/halfday", h.PutHalfDay)
		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.PutSettings)
		api.PUT("/token", h.PutToken)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
