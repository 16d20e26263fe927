package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/Killfeed/internal/domain/run"
	"github.com/jackc/pgx/v5"
)

var _ run.Log = (*RunLogRepoImpl)(nil)

type RunLogRepoImpl struct {
	db         *DB
	player     string
	maxEntries int
}

func NewRunLogRepo(db *DB, player string, maxEntries int) *RunLogRepoImpl {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &RunLogRepoImpl{db: db, player: player, maxEntries: maxEntries}
}

const (
	qRunLogInsert = `
INSERT INTO run_log (player, at, message)
VALUES ($1, $2, $3);`

	qRunLogPrune = `
DELETE FROM run_log
WHERE player = $1
  AND id NOT IN (
    SELECT id FROM run_log
    WHERE player = $1
    ORDER BY id DESC
    LIMIT $2
  );`

	qRunLogRecent = `
SELECT id, at, message FROM (
    SELECT id, at, message
    FROM run_log
    WHERE player = $1
    ORDER BY id DESC
    LIMIT $2
) t
ORDER BY id;`
)

// Append writes the entries and prunes everything past the newest maxEntries.
// Totals live in the cursor row, so the trailer is not stored.
func (r *RunLogRepoImpl) Append(ctx context.Context, entries []run.Entry, _ run.Trailer) error {
	if len(entries) == 0 {
		return nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	b := &pgx.Batch{}
	for _, e := range entries {
		b.Queue(qRunLogInsert, r.player, e.At, e.Message)
	}
	b.Queue(qRunLogPrune, r.player, r.maxEntries)

	br := r.db.Pool.SendBatch(ctx, b)
	defer br.Close()
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("run log batch: %w", err)
		}
	}
	return nil
}

func (r *RunLogRepoImpl) Recent(ctx context.Context, limit int) ([]run.Entry, error) {
	if limit <= 0 || limit > r.maxEntries {
		limit = r.maxEntries
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qRunLogRecent, r.player, limit)
	if err != nil {
		return nil, fmt.Errorf("query run log: %w", err)
	}
	defer rows.Close()

	out := make([]run.Entry, 0, limit)
	for rows.Next() {
		var e run.Entry
		if err := rows.Scan(&e.ID, &e.At, &e.Message); err != nil {
			return nil, fmt.Errorf("scan run log: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
