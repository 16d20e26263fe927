package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/cursor"
	"github.com/jackc/pgx/v5"
)

var (
	_ cursor.Store  = (*CursorRepoImpl)(nil)
	_ cursor.Locker = (*CursorRepoImpl)(nil)
)

// CursorRepoImpl keeps one cursor row per tracked player.
type CursorRepoImpl struct {
	db     *DB
	player string
}

func NewCursorRepo(db *DB, player string) *CursorRepoImpl {
	return &CursorRepoImpl{db: db, player: player}
}

const (
	qCursorGet = `
SELECT last_notified_match_id, last_notified_at, last_notified_match_created, total_notifications_sent
FROM cursors
WHERE player = $1;`

	qCursorUpsert = `
INSERT INTO cursors (player, last_notified_match_id, last_notified_at, last_notified_match_created, total_notifications_sent, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (player) DO UPDATE
SET last_notified_match_id      = EXCLUDED.last_notified_match_id,
    last_notified_at            = EXCLUDED.last_notified_at,
    last_notified_match_created = EXCLUDED.last_notified_match_created,
    total_notifications_sent    = EXCLUDED.total_notifications_sent,
    updated_at                  = now();`

	qTryLock = `SELECT pg_try_advisory_lock(hashtext($1));`
	qUnlock  = `SELECT pg_advisory_unlock(hashtext($1));`
)

func (r *CursorRepoImpl) Load(ctx context.Context) (cursor.Cursor, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		matchID   *string
		at        *time.Time
		createdAt *time.Time
		total     int
	)
	err := r.db.execQueryer(ctx).QueryRow(ctx, qCursorGet, r.player).Scan(&matchID, &at, &createdAt, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return cursor.Cursor{}, nil
	}
	if err != nil {
		return cursor.Cursor{}, fmt.Errorf("get cursor: %w", err)
	}

	c := cursor.Cursor{
		LastNotifiedTime:           at,
		TotalNotificationsSent:     total,
		LastNotifiedMatchCreatedAt: createdAt,
	}
	if matchID != nil {
		c.LastNotifiedMatchID = *matchID
	}
	return c, nil
}

func (r *CursorRepoImpl) Save(ctx context.Context, c cursor.Cursor) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var matchID *string
	if c.LastNotifiedMatchID != "" {
		matchID = &c.LastNotifiedMatchID
	}
	if _, err := r.db.execQueryer(ctx).Exec(ctx, qCursorUpsert,
		r.player, matchID, c.LastNotifiedTime, c.LastNotifiedMatchCreatedAt, c.TotalNotificationsSent,
	); err != nil {
		return fmt.Errorf("upsert cursor: %w", err)
	}
	return nil
}

// TryLock takes a session advisory lock on a dedicated connection, held until unlock.
func (r *CursorRepoImpl) TryLock(ctx context.Context) (func(), error) {
	conn, err := r.db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire conn: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, qTryLock, r.player).Scan(&ok); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, cursor.ErrLocked
	}

	return func() {
		uctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(uctx, qUnlock, r.player)
		conn.Release()
	}, nil
}
