// Package intent maps free-text chat messages onto the bot's closed set of
// intents and pulls out the fields each intent needs.
package intent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PratikDhanave/sprintbot/internal/models"
)

// Completer sends a system message and a prompt to a text-completion model
// and returns the raw completion.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Classifier detects intents. With a nil Completer it runs the local rules only.
type Classifier struct {
	completer Completer
	logger    *slog.Logger
}

// NewClassifier returns a Classifier. A nil completer selects the local rules.
func NewClassifier(completer Completer, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{completer: completer, logger: logger.With("component", "intent")}
}

// Detect classifies text. ok is false when no recognized intent could be
// derived; errors from the model are logged and reported the same way.
func (c *Classifier) Detect(ctx context.Context, text string) (models.IntentResult, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.IntentResult{}, false
	}

	if c.completer == nil {
		res, ok := DetectLocal(text)
		c.logger.Debug("local classification", "intent", res.Intent, "ok", ok)
		return res, ok
	}

	content, err := c.completer.Complete(ctx, systemMessage, BuildPrompt(text))
	if err != nil {
		c.logger.Error("intent completion failed", "error", err)
		return models.IntentResult{}, false
	}
	content = strings.TrimSpace(content)

	res, ok := parseCompletion(content, text)
	if !ok {
		c.logger.Warn("unrecognized completion", "completion", content)
		return models.IntentResult{}, false
	}
	c.logger.Debug("classified", "intent", res.Intent, "title", res.Title, "assignee", res.Assignee, "ticket_id", res.TicketID)
	return res, true
}
