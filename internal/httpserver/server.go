package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/sprintbot/internal/auth"
	"github.com/PratikDhanave/sprintbot/internal/config"
	"github.com/PratikDhanave/sprintbot/internal/handlers"
)

// Pinger is any dependency readiness should check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the handlers' collaborators. Journal is nil when no journal is configured.
type Deps struct {
	Dispatcher handlers.EventDispatcher
	Detector   handlers.IntentDetector
	Tickets    handlers.TicketReader
	Journal    Pinger // nil when no journal is configured
	Logger     *slog.Logger
}

// NewRouter wires public endpoints, the Slack webhook and the internal APIs.
// Public: /health, /ready
// Slack-signed: /slack/events
// API-key (when configured): /intent, /tickets
func NewRouter(cfg config.Config, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the journal DB is reachable, when there is one.
	r.GET("/ready", func(c *gin.Context) {
		if deps.Journal != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()

			if err := deps.Journal.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	slackGroup := r.Group("/")
	slackGroup.Use(auth.SlackSignatureMiddleware(cfg.Slack.SigningSecret, logger))
	handlers.RegisterSlackRoutes(slackGroup, deps.Dispatcher, logger)

	apiGroup := r.Group("/")
	apiGroup.Use(auth.APIKeyMiddleware(cfg.APIKeys))
	handlers.RegisterIntentRoutes(apiGroup, deps.Detector, deps.Tickets)
	handlers.RegisterTicketRoutes(apiGroup, deps.Tickets)

	return r
}
