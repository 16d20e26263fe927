package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/cursor"
	"github.com/NordCoder/Killfeed/internal/domain/run"
	"github.com/stretchr/testify/require"
)

func TestCursorStore_MissingFileIsZero(t *testing.T) {
	s := NewCursorStore(filepath.Join(t.TempDir(), "state", "cursor.json"))
	c, err := s.Load(context.Background())
	require.NoError(t, err)
	require.True(t, c.IsZero())
}

func TestCursorStore_RoundTripAndCompat(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "state", "cursor.json")
	s := NewCursorStore(p)

	created := time.Date(2026, 3, 1, 18, 4, 5, 0, time.UTC)
	want := cursor.Cursor{}.Advance("m5", created, created.Add(time.Hour))
	require.NoError(t, s.Save(context.Background(), want))

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.LastNotifiedMatchID, got.LastNotifiedMatchID)
	require.Equal(t, want.TotalNotificationsSent, got.TotalNotificationsSent)
	require.True(t, want.LastNotifiedMatchCreatedAt.Equal(*got.LastNotifiedMatchCreatedAt))

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"lastNotifiedMatchId": "m5"`)

	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")

	legacy := `{"lastNotifiedMatchId":"abc","lastNotifiedTime":"2025-11-02T10:00:00.000Z","totalNotificationsSent":7}`
	require.NoError(t, os.WriteFile(p, []byte(legacy), 0o644))
	got, err = s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc", got.LastNotifiedMatchID)
	require.Equal(t, 7, got.TotalNotificationsSent)
	require.Nil(t, got.LastNotifiedMatchCreatedAt)
}

func TestCursorStore_CorruptIsZeroWithError(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cursor.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o644))

	c, err := NewCursorStore(p).Load(context.Background())
	require.Error(t, err)
	require.True(t, c.IsZero())
}

func TestLockFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cursor.json.lock")
	l := NewLockFile(p, time.Hour)

	unlock, err := l.TryLock(context.Background())
	require.NoError(t, err)

	_, err = l.TryLock(context.Background())
	require.ErrorIs(t, err, cursor.ErrLocked)

	unlock()
	unlock2, err := l.TryLock(context.Background())
	require.NoError(t, err)
	unlock2()
}

func TestLockFile_StaleIsTakenOver(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cursor.json.lock")
	require.NoError(t, os.WriteFile(p, []byte("1 old\n"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(p, old, old))

	unlock, err := NewLockFile(p, time.Hour).TryLock(context.Background())
	require.NoError(t, err)
	unlock()
}

func TestRunLog_AppendKeepsNewest(t *testing.T) {
	p := filepath.Join(t.TempDir(), "log.md")
	l := NewRunLog(p, 3)
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	var first []run.Entry
	for i := 0; i < 2; i++ {
		first = append(first, run.Entry{At: base.Add(time.Duration(i) * time.Minute), Message: fmt.Sprintf("entry %d", i)})
	}
	require.NoError(t, l.Append(context.Background(), first, run.Trailer{TotalSent: 1, LastCheck: base}))

	second := []run.Entry{
		{At: base.Add(2 * time.Minute), Message: "entry 2"},
		{At: base.Add(3 * time.Minute), Message: "entry\n3"},
	}
	require.NoError(t, l.Append(context.Background(), second, run.Trailer{TotalSent: 2, LastCheck: base.Add(3 * time.Minute)}))

	got, err := l.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "entry 1", got[0].Message)
	require.Equal(t, "entry 3", got[2].Message)

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	text := string(raw)
	require.True(t, strings.HasPrefix(text, "# Match Notification Log\n"))
	require.Contains(t, text, "**2026-03-01T18:03:00.000Z** - entry 3\n")
	require.Contains(t, text, "**Total notifications sent:** 2\n")
	require.Equal(t, 1, strings.Count(text, "---"), "one trailer only")

	last, err := l.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []run.Entry{{At: base.Add(3 * time.Minute), Message: "entry 3"}}, last)
}
