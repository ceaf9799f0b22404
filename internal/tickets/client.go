// Package tickets talks to the Zoho Sprints REST API and normalizes its
// positional-array responses into ticket records.
//
// Every operation re-resolves the current sprint and re-fetches whatever it
// depends on. Nothing is cached between calls.
package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PratikDhanave/sprintbot/internal/config"
	"github.com/PratikDhanave/sprintbot/internal/models"
)

// Lookup failures callers can tell apart with errors.Is.
var (
	ErrNoActiveSprint = errors.New("no active sprint")
	ErrTicketNotFound = errors.New("ticket not found")
)

// WebBaseURL is where item deep links point.
const WebBaseURL = "https://sprints.zoho.com/workspace"

// Client issues authenticated requests against one team/project.
type Client struct {
	cfg    config.ZohoConfig
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a Client. A nil httpClient gets a 30s timeout.
func NewClient(cfg config.ZohoConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient, logger: logger.With("component", "tickets")}
}

type sprintsResponse struct {
	SprintIDs []json.RawMessage `json:"sprintIds"`
}

type usersResponse struct {
	Users map[string]record `json:"userJObj"`
}

type statusResponse struct {
	Statuses map[string]record `json:"statusJObj"`
}

type itemsResponse struct {
	Items        map[string]record `json:"itemJObj"`
	DisplayNames map[string]string `json:"userDisplayName"`
	Props        map[string]int    `json:"item_prop"`
}

type createResponse struct {
	ItemNo json.RawMessage `json:"itemNo"`
	ItemID json.RawMessage `json:"itemId"`
}

func (c *Client) projectPath() string {
	return fmt.Sprintf("/team/%s/projects/%s", c.cfg.TeamID, c.cfg.ProjectID)
}

func (c *Client) sprintPath(sprintID string) string {
	return fmt.Sprintf("%s/sprints/%s", c.projectPath(), sprintID)
}

// CurrentSprint returns the first active sprint. ok is false when there is
// none or the lookup failed.
func (c *Client) CurrentSprint(ctx context.Context) (models.SprintContext, bool) {
	sprint, err := c.currentSprint(ctx)
	if err != nil {
		c.logger.Error("current sprint lookup failed", "error", err)
		return models.SprintContext{}, false
	}
	return sprint, true
}

func (c *Client) currentSprint(ctx context.Context) (models.SprintContext, error) {
	q := pageQuery()
	q.Set("type", "[2]") // active sprints

	var out sprintsResponse
	if err := c.getJSON(ctx, c.projectPath()+"/sprints/", q, &out); err != nil {
		return models.SprintContext{}, err
	}
	for _, raw := range out.SprintIDs {
		if id := rawString(raw); id != "" {
			return models.SprintContext{SprintID: id, TeamID: c.cfg.TeamID, ProjectID: c.cfg.ProjectID}, nil
		}
	}
	return models.SprintContext{}, ErrNoActiveSprint
}

// SprintUsers returns user id -> display name for the current sprint.
// The map is empty when the sprint or the roster cannot be fetched.
func (c *Client) SprintUsers(ctx context.Context) map[string]string {
	sprint, err := c.currentSprint(ctx)
	if err != nil {
		c.logger.Error("sprint users: current sprint lookup failed", "error", err)
		return map[string]string{}
	}
	users, err := c.sprintUsers(ctx, sprint.SprintID)
	if err != nil {
		c.logger.Error("sprint users lookup failed", "sprint_id", sprint.SprintID, "error", err)
		return map[string]string{}
	}
	return users
}

func (c *Client) sprintUsers(ctx context.Context, sprintID string) (map[string]string, error) {
	var out usersResponse
	if err := c.getJSON(ctx, c.sprintPath(sprintID)+"/users/", pageQuery(), &out); err != nil {
		return nil, err
	}
	return firstOfEach(out.Users), nil
}

// AllStatuses returns status id -> status name, empty on failure.
func (c *Client) AllStatuses(ctx context.Context) map[string]string {
	var out statusResponse
	if err := c.getJSON(ctx, c.projectPath()+"/itemstatus/", pageQuery(), &out); err != nil {
		c.logger.Error("status lookup failed", "error", err)
		return map[string]string{}
	}
	return firstOfEach(out.Statuses)
}

// AllTickets returns every item of the current sprint joined with status and
// user display names. On failure or when empty, Message explains why and
// Tickets is an empty list.
func (c *Client) AllTickets(ctx context.Context) models.TicketList {
	sprint, err := c.currentSprint(ctx)
	if err != nil {
		c.logger.Error("all tickets: current sprint lookup failed", "error", err)
		list := models.EmptyTicketList()
		list.Message = "No active sprint found."
		return list
	}

	var (
		statuses map[string]string
		items    itemsResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		statuses = c.AllStatuses(gctx)
		return nil
	})
	g.Go(func() error {
		return c.getJSON(gctx, c.sprintPath(sprint.SprintID)+"/item/", pageQuery(), &items)
	})
	if err := g.Wait(); err != nil {
		c.logger.Error("failed to fetch tickets", "sprint_id", sprint.SprintID, "error", err)
		list := models.EmptyTicketList()
		list.Message = "Failed to fetch tickets."
		return list
	}

	if len(items.Items) == 0 {
		c.logger.Info("no tickets found", "sprint_id", sprint.SprintID)
		list := models.EmptyTicketList()
		list.Message = "No tickets found."
		return list
	}

	tickets := normalizeItems(items, statuses)
	c.logger.Debug("fetched tickets", "sprint_id", sprint.SprintID, "count", len(tickets))
	return models.TicketList{Count: len(tickets), Tickets: tickets}
}

// TicketsForUser filters AllTickets down to items assigned to userID.
func (c *Client) TicketsForUser(ctx context.Context, userID string) models.TicketList {
	return FilterByAssignee(c.AllTickets(ctx), userID)
}

// FilterByAssignee keeps tickets whose assignees include userID.
func FilterByAssignee(all models.TicketList, userID string) models.TicketList {
	out := models.EmptyTicketList()
	for _, t := range all.Tickets {
		if t.AssignedToUser(userID) {
			out.Tickets = append(out.Tickets, t)
		}
	}
	out.Count = len(out.Tickets)
	return out
}

func normalizeItems(items itemsResponse, statuses map[string]string) []models.Ticket {
	lookup := func(m map[string]string, id string) string {
		if v, ok := m[id]; ok && v != "" {
			return v
		}
		return "Unknown"
	}

	tickets := make([]models.Ticket, 0, len(items.Items))
	for id, rec := range items.Items {
		assigned := map[string]string{}
		for _, uid := range rec.list(itemOwners.position(items.Props)) {
			assigned[uid] = lookup(items.DisplayNames, uid)
		}
		tickets = append(tickets, models.Ticket{
			ID:         id,
			Number:     rec.itemNo(items.Props),
			Title:      rec.str(itemTitle.position(items.Props)),
			Status:     lookup(statuses, rec.str(itemStatus.position(items.Props))),
			CreatedBy:  lookup(items.DisplayNames, rec.str(itemCreatedBy.position(items.Props))),
			AssignedTo: assigned,
		})
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })
	return tickets
}
