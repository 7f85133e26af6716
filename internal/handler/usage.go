package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/aman-churiwal/auth-gateway/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UsageReader interface {
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
}

// UsageHandler serves trailing-window request counts for the caller. Counts
// come from durable storage, so records still buffered in the recorder are
// not included until the next flush.
type UsageHandler struct {
	usage UsageReader
}

func NewUsageHandler(usage UsageReader) *UsageHandler {
	return &UsageHandler{usage: usage}
}

func (h *UsageHandler) LastDay(c *gin.Context) {
	h.count(c, 24*time.Hour, "requests_last_24_hours")
}

func (h *UsageHandler) LastWeek(c *gin.Context) {
	h.count(c, 7*24*time.Hour, "requests_last_7_days")
}

func (h *UsageHandler) count(c *gin.Context, window time.Duration, field string) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token."})
		return
	}

	count, err := h.usage.CountSince(c.Request.Context(), user.ID, time.Now().Add(-window))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
		return
	}

	c.JSON(http.StatusOK, gin.H{field: count})
}
