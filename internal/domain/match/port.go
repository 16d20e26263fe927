package match

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("match not found")
	ErrPlayerNotFound = errors.New("player not found")
)

type Lister interface {
	ListMatches(ctx context.Context, p Player) (Listing, error)
}

// DetailFetcher returns ErrNotFound for unknown ids. Any error means the
// match is unavailable for this run.
type DetailFetcher interface {
	GetMatch(ctx context.Context, matchID string) (*Match, error)
}

type Source interface {
	Lister
	DetailFetcher
}
