package notification

import (
	"context"
	"errors"
)

var ErrDuplicate = errors.New("notification already recorded")

// Sender delivers a payload once. A nil error means the endpoint confirmed it.
type Sender interface {
	Send(ctx context.Context, p Payload) error
}

// Repo keeps the notification history. Create returns ErrDuplicate for a
// match that was already recorded.
type Repo interface {
	Create(ctx context.Context, n *Notification) error
	ListByPlayer(ctx context.Context, player string, limit int) ([]*Notification, error)
}

// Recorder keeps track of delivered notifications after the fact.
type Recorder interface {
	Record(ctx context.Context, n *Notification) error
}
