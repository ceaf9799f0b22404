package intent

import (
	"encoding/json"
	"strings"

	"github.com/PratikDhanave/sprintbot/internal/models"
)

const systemMessage = "You are an assistant that extracts intent, title, assignee and ticket id from user queries " +
	"and always responds in valid JSON (double quotes, not single quotes)."

type example struct {
	query  string
	result models.IntentResult
}

// Every intent has at least one example.
var examples = []example{
	{`Show me my tickets`, models.IntentResult{Intent: models.IntentGetMyTickets}},
	{`What tasks do I have assigned?`, models.IntentResult{Intent: models.IntentGetMyTickets}},
	{`Add this to my tickets "Modify warehouse layer"`, models.IntentResult{Intent: models.IntentCreateTicket, Title: "Modify warehouse layer", Assignee: "me"}},
	{`Add a new ticket titled "Modify code structure" and assign it to Rahul Kumar`, models.IntentResult{Intent: models.IntentCreateTicket, Title: "Modify code structure", Assignee: "Rahul Kumar"}},
	{`Create a ticket called "Fix login bug"`, models.IntentResult{Intent: models.IntentCreateTicket, Title: "Fix login bug"}},
	{`Create a ticket in my bucket - Fix Login Bug`, models.IntentResult{Intent: models.IntentCreateTicket, Title: "Fix Login Bug", Assignee: "me"}},
	{`Create a ticket for 'Improve performance' and assign it to Alice`, models.IntentResult{Intent: models.IntentCreateTicket, Title: "Improve performance", Assignee: "Alice"}},
	{`Delete ticket I42`, models.IntentResult{Intent: models.IntentDeleteTicket, TicketID: "I42"}},
	{`Please remove ticket 17 from the sprint`, models.IntentResult{Intent: models.IntentDeleteTicket, TicketID: "17"}},
	{`What can you do?`, models.IntentResult{Intent: models.IntentBotCapabilities}},
	{`Help`, models.IntentResult{Intent: models.IntentBotCapabilities}},
	{`List all features`, models.IntentResult{Intent: models.IntentBotCapabilities}},
}

// BuildPrompt embeds the few-shot examples followed by the user's query.
func BuildPrompt(query string) string {
	var b strings.Builder
	b.WriteString("You are an assistant that classifies user queries into intents and extracts ticket title, assignee and ticket id if present.\n")
	b.WriteString("Respond ONLY in valid JSON (double quotes, not single quotes) with keys: intent, title (if present), assignee (if present), ticket_id (if present).\n")
	b.WriteString("Allowed intents: get_my_tickets, create_ticket, delete_ticket, bot_capabilities.\n")
	b.WriteString("Here are some examples:\n\n")
	for _, ex := range examples {
		line, _ := json.Marshal(ex.result)
		b.WriteString("User: ")
		b.WriteString(ex.query)
		b.WriteString("\n")
		b.Write(line)
		b.WriteString("\n\n")
	}
	b.WriteString("User: ")
	b.WriteString(query)
	b.WriteString("\n")
	return b.String()
}
