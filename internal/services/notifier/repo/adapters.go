package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/Killfeed/internal/domain/kafka"
	"github.com/NordCoder/Killfeed/internal/domain/notification"
	"github.com/NordCoder/Killfeed/internal/domain/outbox"
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OutboxRecorder stores the notification and its outbox event in one
// transaction. A match that is already recorded is not enqueued again.
type OutboxRecorder struct {
	Tx     Transactor
	Notifs notification.Repo
	Outbox outbox.Repository
	Encode func(*notification.Notification) ([]byte, error)
}

func (r OutboxRecorder) Record(ctx context.Context, n *notification.Notification) error {
	return r.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := r.Notifs.Create(ctx, n); err != nil {
			if errors.Is(err, notification.ErrDuplicate) {
				return nil
			}
			return err
		}
		data, err := r.Encode(n)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		return r.Outbox.Enqueue(ctx, IdempotencyKey(n), outbox.KindMatchNotified, data)
	})
}

// HistoryRecorder only stores the notification.
type HistoryRecorder struct{ R notification.Repo }

func (h HistoryRecorder) Record(ctx context.Context, n *notification.Notification) error {
	if err := h.R.Create(ctx, n); err != nil && !errors.Is(err, notification.ErrDuplicate) {
		return err
	}
	return nil
}

// EventsRecorder publishes the notification straight to the event stream.
type EventsRecorder struct{ P kafka.MatchEvents }

func (e EventsRecorder) Record(ctx context.Context, n *notification.Notification) error {
	return e.P.PublishMatchNotified(ctx, n)
}

// Recorders calls every recorder and joins their errors.
type Recorders []notification.Recorder

func (rs Recorders) Record(ctx context.Context, n *notification.Notification) error {
	var errs []error
	for _, r := range rs {
		if err := r.Record(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func IdempotencyKey(n *notification.Notification) string {
	return "match_notified:" + n.PlayerName + ":" + n.MatchID
}
