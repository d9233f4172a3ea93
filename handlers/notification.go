package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackwatters45/blog-api/logger"
	"github.com/jackwatters45/blog-api/middleware"
	"github.com/jackwatters45/blog-api/policy"
)

// Notifications upgrades to a WebSocket that streams events for the
// signed-in user.
func (h *Handler) Notifications(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		respondError(c, "Notifications", policy.ErrUnauthenticated)
		return
	}
	if h.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Notifications are unavailable"})
		return
	}
	if err := h.notifier.Serve(c.Writer, c.Request, actor.ID.Hex()); err != nil {
		logger.Warn.Printf("[Notifications] %s: %v", actor.ID.Hex(), err)
	}
}
