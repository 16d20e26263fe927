package notification

import (
	"time"
)

// Notification is the history record of one delivered webhook.
type Notification struct {
	ID         int64     `json:"id"`
	PlayerName string    `json:"player_name"`
	MatchID    string    `json:"match_id"`
	Kills      int       `json:"kills"`
	Placement  int       `json:"placement"`
	MapName    string    `json:"map_name"`
	MatchAt    time.Time `json:"match_at"`
	SentAt     time.Time `json:"sent_at"`
	Payload    string    `json:"payload"`
}

type Payload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds"`
}

type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []EmbedField `json:"fields"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

type Clock interface {
	Now() time.Time
}
