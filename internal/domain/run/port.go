package run

import "context"

// Log is the append-only run log. Implementations keep only the newest entries.
type Log interface {
	Append(ctx context.Context, entries []Entry, t Trailer) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
