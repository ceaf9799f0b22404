package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/sprintbot/internal/auth"
	"github.com/PratikDhanave/sprintbot/internal/models"
)

// IntentDetector classifies a free-text message.
type IntentDetector interface {
	Detect(ctx context.Context, text string) (models.IntentResult, bool)
}

// TicketReader is the read side of the ticket client.
type TicketReader interface {
	AllTickets(ctx context.Context) models.TicketList
	TicketsForUser(ctx context.Context, userID string) models.TicketList
}

// RegisterIntentRoutes registers the intent test endpoint.
//
// POST /intent {"message": "...", "user_id": "..."}
// - get_my_tickets returns the caller's tickets (all tickets without a caller)
// - other recognized intents are echoed as a dry run; nothing is written
// - 400 on empty or unrecognized input
func RegisterIntentRoutes(r gin.IRoutes, detector IntentDetector, tickets TicketReader) {
	r.POST("/intent", func(c *gin.Context) {
		var req models.IntentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message required"})
			return
		}

		res, ok := detector.Detect(c.Request.Context(), req.Message)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not understand the request"})
			return
		}

		if res.Intent == models.IntentGetMyTickets {
			userID := auth.CallerID(c)
			if userID == "" {
				userID = strings.TrimSpace(req.UserID)
			}
			c.JSON(http.StatusOK, ticketsFor(c.Request.Context(), tickets, userID))
			return
		}
		c.JSON(http.StatusOK, models.IntentResponse{Intent: res, DryRun: true})
	})
}

// RegisterTicketRoutes registers the read-only ticket listing.
//
// GET /tickets?user_id=...
func RegisterTicketRoutes(r gin.IRoutes, tickets TicketReader) {
	r.GET("/tickets", func(c *gin.Context) {
		userID := strings.TrimSpace(c.Query("user_id"))
		if userID == "" {
			userID = auth.CallerID(c)
		}
		c.JSON(http.StatusOK, ticketsFor(c.Request.Context(), tickets, userID))
	})
}

func ticketsFor(ctx context.Context, tickets TicketReader, userID string) models.TicketList {
	if userID == "" {
		return tickets.AllTickets(ctx)
	}
	return tickets.TicketsForUser(ctx, userID)
}
