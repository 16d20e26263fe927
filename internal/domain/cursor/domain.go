package cursor

import "time"

// Cursor is the durable record of the last delivered match of one player.
// The zero value is the state before any delivery.
type Cursor struct {
	LastNotifiedMatchID        string     `json:"lastNotifiedMatchId,omitempty"`
	LastNotifiedTime           *time.Time `json:"lastNotifiedTime,omitempty"`
	TotalNotificationsSent     int        `json:"totalNotificationsSent"`
	LastNotifiedMatchCreatedAt *time.Time `json:"lastNotifiedMatchCreatedAt,omitempty"`
}

func (c Cursor) IsZero() bool {
	return c.LastNotifiedMatchID == "" && c.TotalNotificationsSent == 0
}

// Advance returns the cursor after a confirmed delivery of matchID.
func (c Cursor) Advance(matchID string, createdAt, now time.Time) Cursor {
	created := createdAt.UTC()
	at := now.UTC()
	return Cursor{
		LastNotifiedMatchID:        matchID,
		LastNotifiedTime:           &at,
		TotalNotificationsSent:     c.TotalNotificationsSent + 1,
		LastNotifiedMatchCreatedAt: &created,
	}
}

// Precedes reports whether a match created at t is older than the delivered one.
func (c Cursor) Precedes(t time.Time) bool {
	if c.LastNotifiedMatchCreatedAt == nil || t.IsZero() {
		return false
	}
	return t.Before(*c.LastNotifiedMatchCreatedAt)
}
