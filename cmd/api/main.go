package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PratikDhanave/sprintbot/internal/config"
	"github.com/PratikDhanave/sprintbot/internal/dedup"
	"github.com/PratikDhanave/sprintbot/internal/dispatcher"
	"github.com/PratikDhanave/sprintbot/internal/httpserver"
	"github.com/PratikDhanave/sprintbot/internal/intent"
	"github.com/PratikDhanave/sprintbot/internal/logging"
	"github.com/PratikDhanave/sprintbot/internal/notify"
	"github.com/PratikDhanave/sprintbot/internal/store"
	"github.com/PratikDhanave/sprintbot/internal/tickets"
	"github.com/PratikDhanave/sprintbot/internal/worker"
)

// Version is set at build time.
var Version = "dev"

const drainTimeout = 20 * time.Second

func main() {
	os.Exit(run())
}

// run boots the service: config → logging → clients → pool → journal → HTTP server,
// and drains in-flight work on SIGINT/SIGTERM.
func run() (exitCode int) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	logger, err := logging.Init(logging.Config{
		Level:     logging.ParseLevel(cfg.Log.Level),
		JSON:      cfg.Log.Format == "json",
		SentryDSN: cfg.Log.SentryDSN,
		Env:       cfg.Log.Environment,
		Release:   Version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		return 1
	}
	defer logging.Flush(2 * time.Second)

	defer func() {
		if r := recover(); r != nil {
			logging.CapturePanic(logger, r, "component", "main")
			exitCode = 2
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	ticketClient := tickets.NewClient(cfg.Zoho, httpClient, logger)
	notifier := notify.NewSlack(cfg.Slack, httpClient, logger)

	var completer intent.Completer
	if cfg.OpenAI.APIKey != "" {
		completer = intent.NewOpenAICompleter(cfg.OpenAI, httpClient)
	} else {
		logger.Warn("OPENAI_API_KEY not set, using local intent rules")
	}
	classifier := intent.NewClassifier(completer, logger)

	pool := worker.NewPool(cfg.Worker.Count, cfg.Worker.Queue, logger)

	deps := dispatcher.Deps{
		Cache:      dedup.New(cfg.Dedup.Size, cfg.Dedup.TTL),
		Pool:       pool,
		Classifier: classifier,
		Tickets:    ticketClient,
		Notifier:   notifier,
		UserMap:    cfg.UserMap,
		Logger:     logger,

		ClassifyTimeout: cfg.OpenAI.Timeout,
	}
	routerDeps := httpserver.Deps{
		Detector: classifier,
		Tickets:  ticketClient,
		Logger:   logger,
	}

	// The journal is optional; without DB_URL nothing is persisted.
	if cfg.DBURL != "" {
		db, err := store.NewPostgresStore(ctx, cfg.DBURL)
		if err != nil {
			logger.Error("failed to connect to journal database", "error", err)
			return 1
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			logger.Error("failed to apply journal schema", "error", err)
			return 1
		}
		deps.Journal = db
		routerDeps.Journal = db
	}

	routerDeps.Dispatcher = dispatcher.New(deps)
	router := httpserver.NewRouter(cfg, routerDeps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", srv.Addr, "version", Version, "model", cfg.OpenAI.Model, "journal", cfg.DBURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := pool.Close(shutdownCtx); err != nil {
		logger.Warn("drain timeout exceeded, some replies may not have been sent", "error", err)
	}
	logger.Info("shutdown complete", slog.Int("exit_code", exitCode))
	return exitCode
}
