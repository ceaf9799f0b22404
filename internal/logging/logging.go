// Package logging sets up the process-wide slog logger and forwards
// error-level records to Sentry when a DSN is configured.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds logging configuration.
type Config struct {
	Level     slog.Level
	JSON      bool
	SentryDSN string
	Env       string
	Release   string
	Output    io.Writer // defaults to stderr
}

var sentryEnabled bool

// Init builds the logger, installs it as the slog default and returns it.
func Init(cfg Config) (*slog.Logger, error) {
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Env,
			Release:     cfg.Release,
		})
		if err != nil {
			return nil, fmt.Errorf("sentry init: %w", err)
		}
		sentryEnabled = true
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var base slog.Handler
	if cfg.JSON {
		base = slog.NewJSONHandler(out, opts)
	} else {
		base = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(&sentryHandler{Handler: base, enabled: sentryEnabled})
	slog.SetDefault(logger)
	return logger, nil
}

// Flush waits for buffered Sentry events. Call before shutdown.
func Flush(timeout time.Duration) {
	if sentryEnabled {
		sentry.Flush(timeout)
	}
}

// ParseLevel converts "debug", "info", "warn", "error" to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CapturePanic logs a recovered panic value and reports it to Sentry.
// It should be called from a recover() handler.
func CapturePanic(logger *slog.Logger, panicValue any, attrs ...any) {
	if panicValue == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	msg := fmt.Sprintf("panic: %v", panicValue)
	logger.Error(msg, append([]any{"panic", panicValue}, attrs...)...)

	if !sentryEnabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelFatal)
		scope.SetTag("type", "panic")
		for i := 0; i+1 < len(attrs); i += 2 {
			if key, ok := attrs[i].(string); ok {
				scope.SetExtra(key, attrs[i+1])
			}
		}
		if err, ok := panicValue.(error); ok {
			sentry.CaptureException(err)
		} else {
			sentry.CaptureMessage(msg)
		}
	})
}

// Discard returns a logger that drops everything; used by tests and the CLI.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sentryHandler wraps an slog.Handler and sends error records to Sentry.
type sentryHandler struct {
	slog.Handler
	enabled bool
}

func (h *sentryHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.Handler.Handle(ctx, r); err != nil {
		return err
	}
	if h.enabled && r.Level >= slog.LevelError {
		event := sentry.NewEvent()
		event.Level = sentry.LevelError
		event.Message = r.Message
		event.Timestamp = r.Time
		r.Attrs(func(a slog.Attr) bool {
			event.Extra[a.Key] = a.Value.Any()
			return true
		})
		sentry.CaptureEvent(event)
	}
	return nil
}

func (h *sentryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sentryHandler{Handler: h.Handler.WithAttrs(attrs), enabled: h.enabled}
}

func (h *sentryHandler) WithGroup(name string) slog.Handler {
	return &sentryHandler{Handler: h.Handler.WithGroup(name), enabled: h.enabled}
}
