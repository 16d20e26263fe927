package file

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/NordCoder/Killfeed/internal/domain/cursor"
	json "github.com/goccy/go-json"
)

var _ cursor.Store = (*CursorStore)(nil)

// CursorStore keeps the cursor as a small JSON document.
type CursorStore struct {
	path string
}

func NewCursorStore(path string) *CursorStore {
	return &CursorStore{path: path}
}

func (s *CursorStore) Load(_ context.Context) (cursor.Cursor, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return cursor.Cursor{}, nil
	}
	if err != nil {
		return cursor.Cursor{}, fmt.Errorf("read cursor: %w", err)
	}

	var c cursor.Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return cursor.Cursor{}, fmt.Errorf("parse cursor %s: %w", s.path, err)
	}
	if c.TotalNotificationsSent < 0 {
		return cursor.Cursor{}, fmt.Errorf("parse cursor %s: negative totalNotificationsSent", s.path)
	}
	return c, nil
}

func (s *CursorStore) Save(_ context.Context, c cursor.Cursor) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cursor: %w", err)
	}
	if err := writeAtomic(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}
