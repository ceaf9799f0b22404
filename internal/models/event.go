package models

// SlackEvent is the subset of a Slack message event the dispatcher acts on.
// It lives only for the duration of a single webhook delivery.
type SlackEvent struct {
	EventID        string
	EventTimestamp string
	MessageTS      string
	Type           string
	HasSubtype     bool
	IsBotMessage   bool
	ChannelID      string
	UserID         string
	Text           string
}

// DedupKey returns event_id when present, otherwise event_ts, otherwise the message ts.
// An empty key means the delivery cannot be deduplicated.
func (e SlackEvent) DedupKey() string {
	switch {
	case e.EventID != "":
		return e.EventID
	case e.EventTimestamp != "":
		return e.EventTimestamp
	default:
		return e.MessageTS
	}
}

// Actionable reports whether the event is a plain user message: no edits,
// deletions or bot posts (including our own replies).
func (e SlackEvent) Actionable() bool {
	return e.Type == "message" && !e.HasSubtype && !e.IsBotMessage
}

// IntentRequest is the POST /intent payload.
// user_id is optional; an API key mapped to a user takes precedence.
type IntentRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
}

// IntentResponse is returned by POST /intent for recognized intents that are not ticket lookups.
// DryRun is always true: the endpoint never performs writes.
type IntentResponse struct {
	Intent IntentResult `json:"intent"`
	DryRun bool         `json:"dry_run"`
}
