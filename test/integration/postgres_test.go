//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/cursor"
	"github.com/NordCoder/Killfeed/internal/domain/run"
	pg "github.com/NordCoder/Killfeed/internal/repository/postgres"
	"github.com/stretchr/testify/require"
)

func openPG(t *testing.T, cfg Cfg) *pg.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := pg.NewDB(ctx, pg.Config{DSN: cfg.DBDSN, MaxConns: 4, QueryTimeout: 5 * time.Second})
	require.NoError(t, err)
	require.NoError(t, pg.Migrate(ctx, db))
	t.Cleanup(db.Close)
	return db
}

func TestPostgres_CursorRoundTrip(t *testing.T) {
	cfg := LoadCfg()
	db := openPG(t, cfg)
	verify := DBOpen(t, cfg.DBDSN)
	defer verify.Close()

	ctx := context.Background()
	player := RandPlayer("cursor")
	repo := pg.NewCursorRepo(db, player)

	c, err := repo.Load(ctx)
	require.NoError(t, err)
	require.True(t, c.IsZero())

	created := time.Date(2026, 3, 1, 18, 4, 5, 0, time.UTC)
	c = c.Advance("m5", created, created.Add(time.Hour))
	require.NoError(t, repo.Save(ctx, c))
	c = c.Advance("m6", created.Add(time.Hour), created.Add(2*time.Hour))
	require.NoError(t, repo.Save(ctx, c))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "m6", got.LastNotifiedMatchID)
	require.Equal(t, 2, got.TotalNotificationsSent)
	require.True(t, created.Add(time.Hour).Equal(*got.LastNotifiedMatchCreatedAt))

	require.Equal(t, 1, CountRows(t, verify, `select count(*) from cursors where player = $1`, player))
}

func TestPostgres_AdvisoryLock(t *testing.T) {
	cfg := LoadCfg()
	db := openPG(t, cfg)
	ctx := context.Background()
	player := RandPlayer("lock")

	a := pg.NewCursorRepo(db, player)
	b := pg.NewCursorRepo(db, player)

	unlock, err := a.TryLock(ctx)
	require.NoError(t, err)

	_, err = b.TryLock(ctx)
	require.True(t, errors.Is(err, cursor.ErrLocked))

	unlock()
	unlock2, err := b.TryLock(ctx)
	require.NoError(t, err)
	unlock2()
}

func TestPostgres_RunLogPrunes(t *testing.T) {
	cfg := LoadCfg()
	db := openPG(t, cfg)
	verify := DBOpen(t, cfg.DBDSN)
	defer verify.Close()

	ctx := context.Background()
	player := RandPlayer("runlog")
	log := pg.NewRunLogRepo(db, player, 3)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := log.Append(ctx, []run.Entry{{At: base.Add(time.Duration(i) * time.Minute), Message: fmt.Sprintf("entry %d", i)}}, run.Trailer{})
		require.NoError(t, err)
	}

	require.Equal(t, 3, CountRows(t, verify, `select count(*) from run_log where player = $1`, player))
	entries, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "entry 4", entries[len(entries)-1].Message)
}
