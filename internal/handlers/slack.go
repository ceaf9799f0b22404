package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/sprintbot/internal/dispatcher"
	"github.com/PratikDhanave/sprintbot/internal/worker"
)

// EventDispatcher accepts raw Slack webhook bodies.
type EventDispatcher interface {
	HandleEvent(raw []byte) (dispatcher.Ack, error)
}

// RegisterSlackRoutes registers the Slack Events API webhook.
//
// POST /slack/events
// - Handshake bodies get their challenge echoed back
// - Everything else is acknowledged before any downstream call is made
// - 503 when the work queue is full so Slack redelivers
func RegisterSlackRoutes(r gin.IRoutes, d EventDispatcher, logger *slog.Logger) {
	r.POST("/slack/events", func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		ack, err := d.HandleEvent(raw)
		switch {
		case errors.Is(err, dispatcher.ErrBadPayload):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrClosed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "busy, retry later"})
			return
		case err != nil:
			logger.Error("event handling failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if ack.Challenge != nil {
			c.JSON(http.StatusOK, gin.H{"challenge": ack.Challenge})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
