package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/cursor"
)

var _ cursor.Locker = (*LockFile)(nil)

// LockFile is an exclusive lock held by the existence of a file. A lock older
// than staleAfter is considered abandoned and taken over.
type LockFile struct {
	path       string
	staleAfter time.Duration
}

func NewLockFile(path string, staleAfter time.Duration) *LockFile {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &LockFile{path: path, staleAfter: staleAfter}
}

func (l *LockFile) TryLock(_ context.Context) (func(), error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + " " + time.Now().UTC().Format(time.RFC3339) + "\n")
			_ = f.Close()
			return func() { _ = os.Remove(l.path) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock: %w", err)
		}

		st, serr := os.Stat(l.path)
		if errors.Is(serr, os.ErrNotExist) {
			continue
		}
		if serr != nil || time.Since(st.ModTime()) < l.staleAfter {
			return nil, cursor.ErrLocked
		}
		_ = os.Remove(l.path)
	}
	return nil, cursor.ErrLocked
}
