package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/cursor"
	"github.com/NordCoder/Killfeed/internal/domain/notification"
	"github.com/NordCoder/Killfeed/internal/domain/run"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

var (
	_ cursor.Store          = (*Store)(nil)
	_ run.Log               = (*Store)(nil)
	_ notification.Recorder = (*Store)(nil)
)

// Store keeps cursor, run log and notification history of one player in a
// single SQLite file.
type Store struct {
	db         *sql.DB
	player     string
	maxEntries int
}

func Open(ctx context.Context, path, player string, maxEntries int) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	if maxEntries <= 0 {
		maxEntries = 100
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000")
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = FULL")

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &Store{db: db, player: player, maxEntries: maxEntries}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

const (
	qCursorGet = `
SELECT last_notified_match_id, last_notified_at, last_notified_match_created, total_notifications_sent
FROM cursors WHERE player = ?;`

	qCursorUpsert = `
INSERT INTO cursors (player, last_notified_match_id, last_notified_at, last_notified_match_created, total_notifications_sent, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (player) DO UPDATE SET
    last_notified_match_id      = excluded.last_notified_match_id,
    last_notified_at            = excluded.last_notified_at,
    last_notified_match_created = excluded.last_notified_match_created,
    total_notifications_sent    = excluded.total_notifications_sent,
    updated_at                  = excluded.updated_at;`

	qRunLogInsert = `INSERT INTO run_log (player, at, message) VALUES (?, ?, ?);`

	qRunLogPrune = `
DELETE FROM run_log
WHERE player = ? AND id NOT IN (
    SELECT id FROM run_log WHERE player = ? ORDER BY id DESC LIMIT ?
);`

	qRunLogRecent = `
SELECT id, at, message FROM (
    SELECT id, at, message FROM run_log WHERE player = ? ORDER BY id DESC LIMIT ?
) ORDER BY id;`

	qNotifInsert = `
INSERT INTO notifications (player, match_id, kills, placement, map_name, match_at, sent_at, payload)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (player, match_id) DO NOTHING;`
)

func (s *Store) Load(ctx context.Context) (cursor.Cursor, error) {
	var (
		matchID, at, created sql.NullString
		total                int
	)
	err := s.db.QueryRowContext(ctx, qCursorGet, s.player).Scan(&matchID, &at, &created, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return cursor.Cursor{}, nil
	}
	if err != nil {
		return cursor.Cursor{}, fmt.Errorf("get cursor: %w", err)
	}

	c := cursor.Cursor{LastNotifiedMatchID: matchID.String, TotalNotificationsSent: total}
	if c.LastNotifiedTime, err = parseTime(at); err != nil {
		return cursor.Cursor{}, fmt.Errorf("parse cursor: %w", err)
	}
	if c.LastNotifiedMatchCreatedAt, err = parseTime(created); err != nil {
		return cursor.Cursor{}, fmt.Errorf("parse cursor: %w", err)
	}
	return c, nil
}

func (s *Store) Save(ctx context.Context, c cursor.Cursor) error {
	if _, err := s.db.ExecContext(ctx, qCursorUpsert,
		s.player,
		nullString(c.LastNotifiedMatchID),
		formatTime(c.LastNotifiedTime),
		formatTime(c.LastNotifiedMatchCreatedAt),
		c.TotalNotificationsSent,
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("upsert cursor: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, entries []run.Entry, _ run.Trailer) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, qRunLogInsert, s.player, e.At.UTC().Format(time.RFC3339Nano), e.Message); err != nil {
			return fmt.Errorf("insert run log: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, qRunLogPrune, s.player, s.player, s.maxEntries); err != nil {
		return fmt.Errorf("prune run log: %w", err)
	}
	return tx.Commit()
}

func (s *Store) Recent(ctx context.Context, limit int) ([]run.Entry, error) {
	if limit <= 0 || limit > s.maxEntries {
		limit = s.maxEntries
	}
	rows, err := s.db.QueryContext(ctx, qRunLogRecent, s.player, limit)
	if err != nil {
		return nil, fmt.Errorf("query run log: %w", err)
	}
	defer rows.Close()

	var out []run.Entry
	for rows.Next() {
		var (
			e  run.Entry
			at string
		)
		if err := rows.Scan(&e.ID, &at, &e.Message); err != nil {
			return nil, fmt.Errorf("scan run log: %w", err)
		}
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse run log time: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Record(ctx context.Context, n *notification.Notification) error {
	sent := n.SentAt
	if sent.IsZero() {
		sent = time.Now().UTC()
	}
	var matchAt any
	if !n.MatchAt.IsZero() {
		matchAt = n.MatchAt.UTC().Format(time.RFC3339Nano)
	}
	if _, err := s.db.ExecContext(ctx, qNotifInsert,
		n.PlayerName, n.MatchID, n.Kills, n.Placement, n.MapName, matchAt,
		sent.UTC().Format(time.RFC3339Nano), n.Payload,
	); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
