package models

import "time"

// Interaction is one handled chat message as written to the journal.
type Interaction struct {
	ID        string    `json:"id"`
	EventKey  string    `json:"event_key"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Intent    Intent    `json:"intent"`
	Reply     string    `json:"reply"`
	CreatedAt time.Time `json:"created_at"`
}
