package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/notification"
	"github.com/NordCoder/Killfeed/internal/domain/outbox"
	"github.com/NordCoder/Killfeed/internal/obs/retry"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memOutbox struct {
	mu   sync.Mutex
	msgs []outbox.Message
	done map[string]bool
}

func (m *memOutbox) Enqueue(_ context.Context, key string, kind outbox.Kind, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, outbox.Message{IdempotencyKey: key, Kind: kind, Data: data, Status: outbox.StatusCreated})
	return nil
}

func (m *memOutbox) PickBatch(_ context.Context, batch int, _ time.Duration) ([]outbox.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbox.Message
	for _, msg := range m.msgs {
		if m.done[msg.IdempotencyKey] || len(out) == batch {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (m *memOutbox) MarkSuccess(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		m.done = map[string]bool{}
	}
	for _, k := range keys {
		m.done[k] = true
	}
	return nil
}

type fakeEvents struct {
	mu   sync.Mutex
	got  []*notification.Notification
	fail error
}

func (f *fakeEvents) PublishMatchNotified(_ context.Context, n *notification.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.got = append(f.got, n)
	return nil
}

func (f *fakeEvents) PublishCheckRequested(context.Context, string) error { return nil }

func enqueueNotified(t *testing.T, repo *memOutbox, matchID string) {
	t.Helper()
	data, err := EncodeMatchNotified(&notification.Notification{PlayerName: "Kilma9", MatchID: matchID, Kills: 3})
	require.NoError(t, err)
	require.NoError(t, repo.Enqueue(context.Background(), "Kilma9:"+matchID, outbox.KindMatchNotified, data))
}

func TestRunner_FlushPublishesAll(t *testing.T) {
	repo := &memOutbox{}
	for _, id := range []string{"m1", "m2", "m3"} {
		enqueueNotified(t, repo, id)
	}
	ev := &fakeEvents{}
	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(ev, retry.Policy{Attempts: 1}), 1, 2, time.Second, time.Minute)

	n, err := r.Flush(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Len(t, ev.got, 3)
	require.Equal(t, "m1", ev.got[0].MatchID)

	n, err = r.Flush(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRunner_FailedPublishStaysPending(t *testing.T) {
	repo := &memOutbox{}
	enqueueNotified(t, repo, "m1")
	ev := &fakeEvents{fail: errors.New("broker down")}
	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(ev, retry.Policy{Attempts: 2}), 1, 10, time.Second, time.Minute)

	n, err := r.Flush(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.False(t, repo.done["Kilma9:m1"])
}

func TestRunner_WorkersDrainInBackground(t *testing.T) {
	repo := &memOutbox{}
	enqueueNotified(t, repo, "m1")
	ev := &fakeEvents{}
	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(ev, retry.Policy{Attempts: 1}), 2, 10, 10*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	require.Eventually(t, func() bool {
		ev.mu.Lock()
		defer ev.mu.Unlock()
		return len(ev.got) >= 1
	}, time.Second, 10*time.Millisecond)
	cancel()
	r.Wait()
}

func TestGlobalHandler_UnknownKind(t *testing.T) {
	h := MakeGlobalOutboxHandler(&fakeEvents{}, retry.Policy{})
	_, err := h(outbox.Kind(99))
	require.Error(t, err)
}
