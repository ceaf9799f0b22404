package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Assignee token meaning "the person asking".
const assigneeMe = "me"

// CreateTicket creates an item in the current sprint and returns the message
// to show the requester. It never returns an error: failures become text.
func (c *Client) CreateTicket(ctx context.Context, title, assigneeName, requesterID string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled Ticket"
	}

	sprint, err := c.currentSprint(ctx)
	if err != nil {
		c.logger.Error("create ticket: current sprint lookup failed", "error", err)
		return "❌ I couldn't find an active sprint to add the ticket to."
	}

	assigneeID, unresolved := c.resolveAssignee(ctx, sprint.SprintID, assigneeName, requesterID)

	users := []string{}
	if assigneeID != "" {
		users = append(users, assigneeID)
	}
	usersJSON, _ := json.Marshal(users)

	form := url.Values{}
	form.Set("name", title)
	if c.cfg.ItemTypeID != "" {
		form.Set("projitemtypeid", c.cfg.ItemTypeID)
	}
	if c.cfg.PriorityID != "" {
		form.Set("projpriorityid", c.cfg.PriorityID)
	}
	form.Set("users", string(usersJSON))
	form.Set("description", "")

	c.logger.Info("creating ticket", "sprint_id", sprint.SprintID, "title", title, "assignee_id", assigneeID)
	raw, err := c.postForm(ctx, c.sprintPath(sprint.SprintID)+"/item/", form)
	if err != nil {
		c.logger.Error("failed to create ticket", "error", err)
		return "❌ Failed to create the ticket. Please try again."
	}

	note := ""
	if unresolved != "" {
		note = fmt.Sprintf("\n⚠️ I couldn't find a sprint member named %q, so the ticket is unassigned.", unresolved)
	}

	var out createResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("create ticket: unparseable response", "error", err)
		return "✅ Ticket created, but failed to parse response." + note
	}
	itemNo := rawString(out.ItemNo)
	if itemNo == "" {
		return "✅ Ticket created, but could not fetch ticket ID." + note
	}
	return fmt.Sprintf("✅ Ticket created successfully!\nTicket No: `%s`\nURL: %s", itemNo, c.ItemURL(itemNo)) + note
}

// ItemURL builds the shareable deep link for a visible item number.
func (c *Client) ItemURL(itemNo string) string {
	return fmt.Sprintf("%s/%s#P2/itemdetails/%s", WebBaseURL, c.cfg.Portal, itemNo)
}

// resolveAssignee maps the requested assignee to a user id.
// "me" and an empty name resolve to the requester without consulting the roster.
// A name that matches nobody yields "" and is returned as unresolved.
func (c *Client) resolveAssignee(ctx context.Context, sprintID, name, requesterID string) (id, unresolved string) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, assigneeMe) {
		return requesterID, ""
	}

	users, err := c.sprintUsers(ctx, sprintID)
	if err != nil {
		c.logger.Error("create ticket: sprint users lookup failed", "error", err)
		return "", name
	}
	if id := UserIDByName(users, name); id != "" {
		return id, ""
	}
	return "", name
}

// UserIDByName finds the user whose display name equals name, ignoring case.
func UserIDByName(users map[string]string, name string) string {
	ids := make([]string, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if strings.EqualFold(strings.TrimSpace(users[id]), strings.TrimSpace(name)) {
			return id
		}
	}
	return ""
}

var itemNumberPattern = regexp.MustCompile(`^[Ii]?(\d+)$`)

// DeleteTicket removes an item of the current sprint, addressed either by its
// internal id or its visible number ("I42" or "42"), and returns the message
// to show the requester.
func (c *Client) DeleteTicket(ctx context.Context, ticketID string) string {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return "❓ Tell me which ticket to delete, for example: \"delete ticket I42\"."
	}

	sprint, err := c.currentSprint(ctx)
	if err != nil {
		c.logger.Error("delete ticket: current sprint lookup failed", "error", err)
		return "❌ I couldn't find an active sprint to delete the ticket from."
	}

	var items itemsResponse
	if err := c.getJSON(ctx, c.sprintPath(sprint.SprintID)+"/item/", pageQuery(), &items); err != nil {
		c.logger.Error("delete ticket: item lookup failed", "error", err)
		return "❌ Failed to delete the ticket. Please try again."
	}

	itemID, title, err := findItem(items, ticketID)
	if errors.Is(err, ErrTicketNotFound) {
		return fmt.Sprintf("❓ I couldn't find ticket `%s` in the current sprint.", ticketID)
	}

	c.logger.Info("deleting ticket", "sprint_id", sprint.SprintID, "item_id", itemID)
	if err := c.delete(ctx, c.sprintPath(sprint.SprintID)+"/item/"+itemID+"/"); err != nil {
		c.logger.Error("failed to delete ticket", "item_id", itemID, "error", err)
		return "❌ Failed to delete the ticket. Please try again."
	}
	return fmt.Sprintf("🗑️ Ticket `%s` (*%s*) deleted.", ticketID, title)
}

// findItem matches ref against internal ids first, then visible numbers.
func findItem(items itemsResponse, ref string) (id, title string, err error) {
	titleIdx := itemTitle.position(items.Props)
	if rec, ok := items.Items[ref]; ok {
		return ref, rec.str(titleIdx), nil
	}

	m := itemNumberPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", "", ErrTicketNotFound
	}
	ids := make([]string, 0, len(items.Items))
	for itemID := range items.Items {
		ids = append(ids, itemID)
	}
	sort.Strings(ids)
	for _, itemID := range ids {
		rec := items.Items[itemID]
		if n := itemNumberPattern.FindStringSubmatch(rec.itemNo(items.Props)); n != nil && n[1] == m[1] {
			return itemID, rec.str(titleIdx), nil
		}
	}
	return "", "", ErrTicketNotFound
}
