package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/notification"
	"github.com/jackc/pgx/v5"
)

var _ notification.Repo = (*NotificationRepoImpl)(nil)

var ErrConflict = errors.New("conflict")

type NotificationRepoImpl struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepoImpl { return &NotificationRepoImpl{db: db} }

const (
	qNotifInsert = `
INSERT INTO notifications (player, match_id, kills, placement, map_name, match_at, sent_at, payload)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()), $8)
ON CONFLICT (player, match_id) DO NOTHING
RETURNING id, sent_at;
`
	qNotifByPlayer = `
SELECT id, player, match_id, kills, placement, map_name, match_at, sent_at, payload
FROM notifications
WHERE player = $1
ORDER BY sent_at DESC
LIMIT $2;
`
)

// Create stores n and fills ID and SentAt. A second record for the same match
// returns notification.ErrDuplicate.
func (r *NotificationRepoImpl) Create(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.execQueryer(ctx).QueryRow(ctx, qNotifInsert,
		n.PlayerName,
		n.MatchID,
		n.Kills,
		n.Placement,
		n.MapName,
		nullTime(n.MatchAt),
		nullTime(n.SentAt),
		n.Payload,
	).Scan(&n.ID, &n.SentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrConflict, notification.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepoImpl) ListByPlayer(ctx context.Context, player string, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qNotifByPlayer, player, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*notification.Notification, 0, limit)
	for rows.Next() {
		var (
			n       notification.Notification
			matchAt *time.Time
		)
		if err := rows.Scan(&n.ID, &n.PlayerName, &n.MatchID, &n.Kills, &n.Placement, &n.MapName, &matchAt, &n.SentAt, &n.Payload); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if matchAt != nil {
			n.MatchAt = *matchAt
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
