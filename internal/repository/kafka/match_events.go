package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/kafka"
	"github.com/NordCoder/Killfeed/internal/domain/notification"
	"google.golang.org/protobuf/types/known/structpb"
)

// MatchEventsKafka publishes notifier events. Either producer may be nil when
// the corresponding topic is not used by the process.
type MatchEventsKafka struct {
	notified *Producer
	requests *Producer
}

func NewMatchEventsKafka(notified, requests *Producer) *MatchEventsKafka {
	return &MatchEventsKafka{notified: notified, requests: requests}
}

var _ kafka.MatchEvents = (*MatchEventsKafka)(nil)

var errNoProducer = errors.New("kafka: producer not configured")

func (e *MatchEventsKafka) PublishMatchNotified(ctx context.Context, n *notification.Notification) error {
	if e.notified == nil {
		return errNoProducer
	}
	msg, err := MatchNotifiedMessage(n)
	if err != nil {
		return err
	}
	return e.notified.PublishProto(ctx, KeyFromString(n.PlayerName), msg)
}

func (e *MatchEventsKafka) PublishCheckRequested(ctx context.Context, player string) error {
	if e.requests == nil {
		return errNoProducer
	}
	msg, err := structpb.NewStruct(map[string]any{
		"player":       player,
		"requested_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	return e.requests.PublishProto(ctx, KeyFromString(player), msg)
}

func MatchNotifiedMessage(n *notification.Notification) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"player":    n.PlayerName,
		"match_id":  n.MatchID,
		"kills":     n.Kills,
		"placement": n.Placement,
		"map_name":  n.MapName,
		"match_at":  n.MatchAt.UTC().Format(time.RFC3339),
		"sent_at":   n.SentAt.UTC().Format(time.RFC3339Nano),
	})
}

// CheckRequest is a decoded message from the request topic.
type CheckRequest struct {
	Player      string
	RequestedAt time.Time
}

func CheckRequestFromProto(s *structpb.Struct) CheckRequest {
	var r CheckRequest
	if s == nil {
		return r
	}
	f := s.GetFields()
	r.Player = f["player"].GetStringValue()
	if at := f["requested_at"].GetStringValue(); at != "" {
		r.RequestedAt, _ = time.Parse(time.RFC3339Nano, at)
	}
	return r
}
