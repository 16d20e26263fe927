package kafka

import (
	"context"

	"github.com/NordCoder/Killfeed/internal/domain/notification"
)

type MatchEvents interface {
	PublishMatchNotified(ctx context.Context, n *notification.Notification) error
	PublishCheckRequested(ctx context.Context, player string) error
}
