package models

import "strings"

// Intent is the closed set of requests the bot understands.
type Intent string

const (
	IntentGetMyTickets    Intent = "get_my_tickets"
	IntentCreateTicket    Intent = "create_ticket"
	IntentBotCapabilities Intent = "bot_capabilities"
	IntentDeleteTicket    Intent = "delete_ticket"
	IntentUnknown         Intent = "unknown"
)

// ParseIntent normalizes s and maps it onto the closed set.
// Anything outside the set maps to IntentUnknown.
func ParseIntent(s string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentGetMyTickets:
		return IntentGetMyTickets
	case IntentCreateTicket:
		return IntentCreateTicket
	case IntentBotCapabilities:
		return IntentBotCapabilities
	case IntentDeleteTicket:
		return IntentDeleteTicket
	default:
		return IntentUnknown
	}
}

// Known reports whether i is one of the actionable intents.
func (i Intent) Known() bool {
	return i != IntentUnknown && ParseIntent(string(i)) == i
}

// IntentResult is produced once per incoming message and never mutated afterwards.
type IntentResult struct {
	Intent   Intent `json:"intent"`
	Title    string `json:"title,omitempty"`
	Assignee string `json:"assignee,omitempty"`
	TicketID string `json:"ticket_id,omitempty"`
}
