// Command sprintctl runs the bot's intent detection and ticket operations
// from a terminal, without Slack in the loop.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PratikDhanave/sprintbot/internal/config"
	"github.com/PratikDhanave/sprintbot/internal/intent"
	"github.com/PratikDhanave/sprintbot/internal/logging"
	"github.com/PratikDhanave/sprintbot/internal/replies"
	"github.com/PratikDhanave/sprintbot/internal/store"
	"github.com/PratikDhanave/sprintbot/internal/tickets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// app is filled in by the root PersistentPreRunE. Config is read without
// validation: each command checks only what it uses.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var verbose bool

	root := &cobra.Command{
		Use:   "sprintctl",
		Short: "Sprint bot operations from the command line",
		Long: `sprintctl - drive the sprint bot without Slack.

Configuration comes from the same environment variables as the server
(ZOHO_*, OPENAI_*, DB_URL, SPRINTBOT_CONFIG).

Examples:
  sprintctl detect "Show me my tickets"
  sprintctl tickets --user 28091000000403001
  sprintctl create "Fix login bug" --assignee me --requester 28091000000403001
  sprintctl delete I42`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read()
			if err != nil {
				return err
			}
			level := logging.ParseLevel(cfg.Log.Level)
			if verbose {
				level = slog.LevelDebug
			}
			logger, err := logging.Init(logging.Config{Level: level, Output: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		a.detectCmd(),
		a.sprintCmd(),
		a.usersCmd(),
		a.ticketsCmd(),
		a.createCmd(),
		a.deleteCmd(),
		a.historyCmd(),
	)
	return root
}

func (a *app) ticketClient() (*tickets.Client, error) {
	if err := a.cfg.Zoho.Validate(); err != nil {
		return nil, err
	}
	return tickets.NewClient(a.cfg.Zoho, &http.Client{Timeout: a.cfg.HTTPTimeout}, a.logger), nil
}

func (a *app) detectCmd() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "detect <message>",
		Short: "Classify a message and print the intent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var completer intent.Completer
			if !local && a.cfg.OpenAI.APIKey != "" {
				completer = intent.NewOpenAICompleter(a.cfg.OpenAI, &http.Client{Timeout: a.cfg.HTTPTimeout})
			}
			res, ok := intent.NewClassifier(completer, a.logger).Detect(cmd.Context(), strings.Join(args, " "))
			if !ok {
				return errors.New(replies.NotUnderstood)
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "use the local rules even when a model key is configured")
	return cmd
}

func (a *app) sprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sprint",
		Short: "Show the current active sprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.ticketClient()
			if err != nil {
				return err
			}
			sprint, ok := c.CurrentSprint(cmd.Context())
			if !ok {
				return tickets.ErrNoActiveSprint
			}
			return printJSON(cmd.OutOrStdout(), sprint)
		},
	}
}

func (a *app) usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List sprint members and statuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.ticketClient()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]map[string]string{
				"users":    c.SprintUsers(cmd.Context()),
				"statuses": c.AllStatuses(cmd.Context()),
			})
		},
	}
}

func (a *app) ticketsCmd() *cobra.Command {
	var (
		user string
		text bool
	)
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List tickets in the current sprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.ticketClient()
			if err != nil {
				return err
			}
			list := c.AllTickets(cmd.Context())
			if user != "" {
				list = tickets.FilterByAssignee(list, user)
			}
			if text {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), replies.Tickets(list.Tickets))
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "only tickets assigned to this ticket-service user id")
	cmd.Flags().BoolVar(&text, "text", false, "print the Slack-formatted reply instead of JSON")
	return cmd
}

func (a *app) createCmd() *cobra.Command {
	var assignee, requester string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a ticket in the current sprint",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.ticketClient()
			if err != nil {
				return err
			}
			msg := c.CreateTicket(cmd.Context(), strings.Join(args, " "), assignee, requester)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}
	cmd.Flags().StringVar(&assignee, "assignee", "", `display name, or "me" for the requester`)
	cmd.Flags().StringVar(&requester, "requester", "", "ticket-service user id of the requester")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ticket>",
		Short: "Delete a ticket by id or number (I42)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.ticketClient()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), c.DeleteTicket(cmd.Context(), args[0]))
			return err
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var (
		user  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled interactions for a Slack user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.DBURL == "" {
				return errors.New("DB_URL required")
			}
			if user == "" {
				return errors.New("--user required")
			}
			ctx := cmd.Context()
			db, err := store.NewPostgresStore(ctx, a.cfg.DBURL)
			if err != nil {
				return fmt.Errorf("connect journal: %w", err)
			}
			defer db.Close()

			entries, err := db.RecentInteractions(ctx, user, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Slack user id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
