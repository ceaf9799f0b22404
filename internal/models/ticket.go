package models

// Ticket is a sprint item normalized from the ticket service's positional arrays.
// AssignedTo maps user id -> display name; an item may have several assignees.
type Ticket struct {
	ID         string            `json:"id"`
	Number     string            `json:"number,omitempty"`
	Title      string            `json:"title"`
	Status     string            `json:"status"`
	CreatedBy  string            `json:"created_by"`
	AssignedTo map[string]string `json:"assigned_to"`
}

// AssignedToUser reports whether userID is among the ticket's assignees.
func (t Ticket) AssignedToUser(userID string) bool {
	_, ok := t.AssignedTo[userID]
	return ok
}

// TicketList is the read-side result shape. Message is set instead of tickets
// when nothing was found or the upstream call failed.
type TicketList struct {
	Count   int      `json:"count"`
	Tickets []Ticket `json:"tickets"`
	Message string   `json:"message,omitempty"`
}

// EmptyTicketList returns {count:0, tickets:[]} with a non-nil slice so it encodes as [].
func EmptyTicketList() TicketList {
	return TicketList{Count: 0, Tickets: []Ticket{}}
}

// SprintContext identifies the sprint an operation runs against.
// It is resolved per operation and never cached.
type SprintContext struct {
	SprintID  string `json:"sprint_id"`
	TeamID    string `json:"team_id"`
	ProjectID string `json:"project_id"`
}
