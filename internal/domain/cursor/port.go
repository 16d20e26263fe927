package cursor

import (
	"context"
	"errors"
)

var ErrLocked = errors.New("cursor locked by another run")

// Store loads and saves the cursor of one player. Load returns the zero cursor
// when nothing was saved yet; a non-nil error comes with the zero cursor too.
type Store interface {
	Load(ctx context.Context) (Cursor, error)
	Save(ctx context.Context, c Cursor) error
}

// Locker guards a run against a concurrent one on the same store.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(), err error)
}
