// Package notify posts bot replies back to Slack channels.
package notify

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/slack-go/slack"

	"github.com/PratikDhanave/sprintbot/internal/config"
)

// Notifier delivers text to a channel. Delivery failures are the
// implementation's problem: callers never see them.
type Notifier interface {
	Send(ctx context.Context, channelID, text string)
}

// Slack posts with chat.postMessage.
type Slack struct {
	api    *slack.Client
	logger *slog.Logger
}

// NewSlack builds a notifier posting as the configured bot. cfg.APIURL
// overrides the Slack Web API base.
func NewSlack(cfg config.SlackConfig, httpClient *http.Client, logger *slog.Logger) *Slack {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []slack.Option{}
	if base := strings.TrimSpace(cfg.APIURL); base != "" {
		opts = append(opts, slack.OptionAPIURL(strings.TrimRight(base, "/")+"/"))
	}
	if httpClient != nil {
		opts = append(opts, slack.OptionHTTPClient(httpClient))
	}
	return &Slack{
		api:    slack.New(cfg.BotToken, opts...),
		logger: logger.With("component", "notify"),
	}
}

// Send posts text once. Errors are logged, never retried.
func (s *Slack) Send(ctx context.Context, channelID, text string) {
	if channelID == "" || strings.TrimSpace(text) == "" {
		return
	}
	_, ts, err := s.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		s.logger.Error("failed to send message", "channel", channelID, "error", err)
		return
	}
	s.logger.Debug("message sent", "channel", channelID, "ts", ts)
}
