package outbox

import (
	"context"
	"strconv"
	"time"
)

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
)

// Kind selects the handler a message is dispatched to. Values are stored, so
// never renumber them.
type Kind int

const (
	KindMatchNotified Kind = 1
)

func (k Kind) String() string {
	switch k {
	case KindMatchNotified:
		return "match_notified"
	default:
		return "kind_" + strconv.Itoa(int(k))
	}
}

// Message is one pending event, written in the same transaction as the
// notification it describes.
type Message struct {
	IdempotencyKey string
	Kind           Kind
	Data           []byte
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Tracestate     string
	Traceparent    string
	Baggage        string
}

type Repository interface {
	// Enqueue is a no-op for a key that already exists.
	Enqueue(ctx context.Context, key string, kind Kind, data []byte) error
	// PickBatch claims up to batch messages, including in-progress ones whose
	// claim is older than inProgressTTL.
	PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]Message, error)
	MarkSuccess(ctx context.Context, keys []string) error
}

type KindHandler func(ctx context.Context, data []byte) error

type GlobalHandler func(kind Kind) (KindHandler, error)
