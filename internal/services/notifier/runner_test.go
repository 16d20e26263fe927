package notifier

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/run"
	kafkax "github.com/NordCoder/Killfeed/internal/repository/kafka"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type scripted struct {
	outcomes []run.Outcome
	calls    int32
}

func (s *scripted) Run(ctx context.Context) Report {
	i := int(atomic.AddInt32(&s.calls, 1)) - 1
	o := run.OutcomeNoNewMatches
	if i < len(s.outcomes) {
		o = s.outcomes[i]
	}
	return Report{Outcome: o}
}

func TestRunner_HealthAfterConsecutiveFailures(t *testing.T) {
	s := &scripted{outcomes: []run.Outcome{
		run.OutcomeListingFailed,
		run.OutcomeDeliveryFailed,
		run.OutcomeNotified,
		run.OutcomeListingFailed,
		run.OutcomeListingFailed,
		run.OutcomeDeliveryFailed,
	}}
	r := NewRunner(zap.NewNop(), s, time.Second)
	ctx := context.Background()

	r.RunOnce(ctx)
	r.RunOnce(ctx)
	require.NoError(t, r.Health(ctx))

	r.RunOnce(ctx)
	require.Equal(t, 0, r.Status().ConsecutiveFailures)

	r.RunOnce(ctx)
	r.RunOnce(ctx)
	require.NoError(t, r.Health(ctx))
	r.RunOnce(ctx)
	require.Error(t, r.Health(ctx))

	st := r.Status()
	require.Equal(t, 6, st.Runs)
	require.Equal(t, run.OutcomeDeliveryFailed, st.Last.Outcome)
}

func TestRunner_CronStopsWithContext(t *testing.T) {
	r := NewRunner(zap.NewNop(), &scripted{}, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := r.RunCron(ctx, "*/5 * * * *", time.UTC)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, r.Status().NextRun.IsZero())
}

func TestRunner_CronRejectsBadSpec(t *testing.T) {
	r := NewRunner(zap.NewNop(), &scripted{}, time.Second)
	require.Error(t, r.RunCron(context.Background(), "every tuesday", time.UTC))
}

type fakeConsumer struct {
	msgs [][2][]byte
}

func (f *fakeConsumer) Consume(ctx context.Context, h kafkax.Handler) error {
	for _, m := range f.msgs {
		if err := h(ctx, m[0], m[1]); err != nil {
			return err
		}
	}
	return context.Canceled
}

func requestBytes(t *testing.T, player string) []byte {
	t.Helper()
	s, err := structpb.NewStruct(map[string]any{"player": player})
	require.NoError(t, err)
	b, err := proto.Marshal(s)
	require.NoError(t, err)
	return b
}

func TestController_RunsOnlyForTrackedPlayer(t *testing.T) {
	s := &scripted{}
	c := &Controller{
		Log:    zap.NewNop(),
		Runner: NewRunner(zap.NewNop(), s, time.Second),
		Player: "Kilma9",
		Sub: &fakeConsumer{msgs: [][2][]byte{
			{[]byte("Kilma9"), requestBytes(t, "Kilma9")},
			{[]byte("Someone"), requestBytes(t, "Someone")},
			{nil, requestBytes(t, "Someone")},
			{nil, requestBytes(t, "")},
		}},
	}

	require.NoError(t, c.Run(context.Background()))
	require.EqualValues(t, 2, atomic.LoadInt32(&s.calls))
}
