// Package replies holds the text the bot posts back to chat.
package replies

import (
	"fmt"
	"strings"

	"github.com/PratikDhanave/sprintbot/internal/models"
)

const (
	NotUnderstood = "❓ Sorry, I couldn't understand your request. Please rephrase or try another command."
	Failure       = "❌ Something went wrong while processing your request."
	NoTickets     = "No tickets assigned to you."
)

// Ack is the immediate acknowledgment for intent, empty when there is none.
func Ack(intent models.Intent) string {
	switch intent {
	case models.IntentGetMyTickets:
		return "🔍 Working on your request..."
	case models.IntentCreateTicket:
		return "📝 Creating your ticket..."
	case models.IntentBotCapabilities:
		return "ℹ️ Listing my capabilities..."
	case models.IntentDeleteTicket:
		return "🗑️ Deleting your ticket..."
	default:
		return ""
	}
}

// Tickets renders a ticket list as a Slack mrkdwn bullet list.
func Tickets(tickets []models.Ticket) string {
	if len(tickets) == 0 {
		return NoTickets
	}
	var b strings.Builder
	b.WriteString("*🎟️ Your Tickets:*\n")
	for _, t := range tickets {
		title := t.Title
		if t.Number != "" {
			title = t.Number + " " + title
		}
		fmt.Fprintf(&b, "\n• *%s* _(Status: %s, Created by: %s)_", title, t.Status, t.CreatedBy)
	}
	return b.String()
}

// Capabilities lists what the bot can do and how to ask for it.
func Capabilities() string {
	return "*🤖 Here are the tasks I can help you with:*\n\n" +
		"1. *Get My Tickets*: Fetch all tickets assigned to you.\n" +
		"   - _How to use_: \"Show me my tickets\", \"What tasks do I have assigned?\"\n" +
		"   - _Requirements_: None.\n\n" +
		"2. *Create Ticket*: Create a new ticket with a title and assignee.\n" +
		"   - _How to use_: \"Add a new ticket titled 'Fix login bug' and assign it to Alice\", \"Add this to my tickets 'Modify warehouse layer'\"\n" +
		"   - _Requirements_: You must specify the ticket title. Optionally, you can specify the assignee (e.g., a name or 'me').\n\n" +
		"3. *Delete Ticket*: Remove a ticket from the current sprint.\n" +
		"   - _How to use_: \"Delete ticket I42\", \"Remove ticket 17\"\n" +
		"   - _Requirements_: The ticket number or id.\n\n" +
		"4. *Bot Capabilities*: List all tasks I can perform and their requirements.\n" +
		"   - _How to use_: \"What can you do?\", \"Help\", \"List all features\"\n" +
		"   - _Requirements_: None.\n"
}
