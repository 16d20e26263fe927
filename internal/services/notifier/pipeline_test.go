package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/cursor"
	"github.com/NordCoder/Killfeed/internal/domain/match"
	"github.com/NordCoder/Killfeed/internal/domain/notification"
	"github.com/NordCoder/Killfeed/internal/domain/run"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu       sync.Mutex
	ids      []string
	listErr  error
	matches  map[string]*match.Match
	accounts string
	fetched  []string
	lists    int
}

func (f *fakeSource) ListMatches(_ context.Context, p match.Player) (match.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return match.Listing{}, f.listErr
	}
	return match.Listing{Player: match.Player{Name: p.Name, AccountID: f.accounts}, MatchIDs: f.ids}, nil
}

func (f *fakeSource) GetMatch(_ context.Context, id string) (*match.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, id)
	m, ok := f.matches[id]
	if !ok {
		return nil, match.ErrNotFound
	}
	return m, nil
}

type fakeSender struct {
	err  error
	sent []notification.Payload
}

func (f *fakeSender) Send(_ context.Context, p notification.Payload) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, p)
	return nil
}

type memCursor struct {
	c       cursor.Cursor
	loadErr error
	saveErr error
	saves   int
}

func (m *memCursor) Load(context.Context) (cursor.Cursor, error) {
	if m.loadErr != nil {
		return cursor.Cursor{}, m.loadErr
	}
	return m.c, nil
}

func (m *memCursor) Save(_ context.Context, c cursor.Cursor) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.c = c
	return nil
}

type memLog struct {
	entries []run.Entry
	trailer run.Trailer
}

func (m *memLog) Append(_ context.Context, es []run.Entry, t run.Trailer) error {
	m.entries = append(m.entries, es...)
	m.trailer = t
	return nil
}

func (m *memLog) Recent(context.Context, int) ([]run.Entry, error) { return m.entries, nil }

func (m *memLog) messages() []string {
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Message)
	}
	return out
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type memRecorder struct{ got []*notification.Notification }

func (m *memRecorder) Record(_ context.Context, n *notification.Notification) error {
	m.got = append(m.got, n)
	return nil
}

type heldLock struct{}

func (heldLock) TryLock(context.Context) (func(), error) { return nil, cursor.ErrLocked }

func playedMatch(id string, created time.Time, kills, place int) *match.Match {
	return &match.Match{
		Summary: match.Summary{MatchID: id, CreatedAt: created, MapName: "Baltic_Main", GameMode: "squad-fpp"},
		Participants: []match.Participant{
			{ID: id + "-p1", Stats: match.Stats{Name: "Kilma9", PlayerID: "account.kilma9", Kills: kills, WinPlace: place, DamageDealt: 250.4, TimeSurvived: 1500}},
			{ID: id + "-p2", Stats: match.Stats{Name: "Mate1", PlayerID: "account.mate1", WinPlace: place}},
		},
		Rosters: []match.Roster{{ID: id + "-r", Rank: place, ParticipantIDs: []string{id + "-p1", id + "-p2"}}},
	}
}

func absentMatch(id string, created time.Time) *match.Match {
	return &match.Match{
		Summary:      match.Summary{MatchID: id, CreatedAt: created},
		Participants: []match.Participant{{ID: "x", Stats: match.Stats{Name: "Stranger", WinPlace: 4}}},
	}
}

type harness struct {
	src    *fakeSource
	sender *fakeSender
	cur    *memCursor
	log    *memLog
	rec    *memRecorder
	pipe   *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		src:    &fakeSource{matches: map[string]*match.Match{}},
		sender: &fakeSender{},
		cur:    &memCursor{},
		log:    &memLog{},
		rec:    &memRecorder{},
	}
	h.pipe = NewPipeline(zaptest.NewLogger(t), Deps{
		Matches:  h.src,
		Sender:   h.sender,
		Cursors:  h.cur,
		RunLog:   h.log,
		Recorder: h.rec,
		Clock:    fixedClock{t0.Add(time.Hour)},
	}, Options{
		Player:   match.Player{Name: "Kilma9"},
		Composer: NewComposer("", time.UTC),
	})
	return h
}

func TestPipeline_NotifiesNewestAndAdvancesCursor(t *testing.T) {
	h := newHarness(t)
	h.src.ids = []string{"m5", "m4"}
	h.src.matches["m5"] = playedMatch("m5", t0, 6, 2)
	h.src.matches["m4"] = playedMatch("m4", t0.Add(-time.Hour), 1, 30)

	rep := h.pipe.Run(context.Background())

	require.Equal(t, run.OutcomeNotified, rep.Outcome)
	require.Equal(t, "m5", rep.NotifiedID)
	require.Len(t, h.sender.sent, 1)
	require.Equal(t, []string{"m5"}, h.src.fetched)
	require.Equal(t, "m5", h.cur.c.LastNotifiedMatchID)
	require.Equal(t, 1, h.cur.c.TotalNotificationsSent)
	require.True(t, t0.Equal(*h.cur.c.LastNotifiedMatchCreatedAt))
	require.Equal(t, []string{"check started", "notification sent: 6 kills, #2 placement on Erangel"}, h.log.messages())
	require.Equal(t, 1, h.log.trailer.TotalSent)
	require.Len(t, h.rec.got, 1)
	require.Equal(t, "Erangel", h.rec.got[0].MapName)
}

func TestPipeline_AtMostOneSendAndIdempotent(t *testing.T) {
	h := newHarness(t)
	h.src.ids = []string{"m3", "m2", "m1"}
	for i, id := range h.src.ids {
		h.src.matches[id] = playedMatch(id, t0.Add(-time.Duration(i)*time.Hour), 2, 5)
	}

	first := h.pipe.Run(context.Background())
	require.Equal(t, run.OutcomeNotified, first.Outcome)
	require.Len(t, h.sender.sent, 1)

	for i := 0; i < 3; i++ {
		rep := h.pipe.Run(context.Background())
		require.Equal(t, run.OutcomeNoNewMatches, rep.Outcome)
	}
	require.Len(t, h.sender.sent, 1)
	require.Equal(t, "m3", h.cur.c.LastNotifiedMatchID)
	require.Equal(t, 1, h.cur.c.TotalNotificationsSent)
}

func TestPipeline_StopsAtCursor(t *testing.T) {
	h := newHarness(t)
	h.src.ids = []string{"m5", "m4", "m3", "m2", "m1"}
	h.src.matches["m4"] = absentMatch("m4", t0)
	h.cur.c = cursor.Cursor{LastNotifiedMatchID: "m3", TotalNotificationsSent: 4}

	rep := h.pipe.Run(context.Background())

	require.Equal(t, []string{"m5", "m4"}, h.src.fetched)
	require.Equal(t, run.OutcomeNoNewMatches, rep.Outcome)
	require.Empty(t, h.sender.sent)
	require.Equal(t, "m3", h.cur.c.LastNotifiedMatchID)
	require.Equal(t, 4, h.cur.c.TotalNotificationsSent)
	require.Equal(t, []string{"check started", "no new matches"}, h.log.messages())
}

func TestPipeline_SkipsUnavailableMatch(t *testing.T) {
	h := newHarness(t)
	h.src.ids = []string{"m5", "m4", "m3"}
	h.src.matches["m4"] = playedMatch("m4", t0, 3, 12)
	h.cur.c = cursor.Cursor{LastNotifiedMatchID: "m3", TotalNotificationsSent: 1}

	rep := h.pipe.Run(context.Background())

	require.Equal(t, run.OutcomeNotified, rep.Outcome)
	require.Equal(t, 1, rep.Skipped)
	require.Equal(t, "m4", h.cur.c.LastNotifiedMatchID)
	require.Equal(t, 2, h.cur.c.TotalNotificationsSent)
}

func TestPipeline_SkipsMatchWithoutPlayer(t *testing.T) {
	h := newHarness(t)
	h.src.ids = []string{"m5", "m4"}
	h.src.matches["m5"] = absentMatch("m5", t0)
	h.src.matches["m4"] = playedMatch("m4", t0.Add(-time.Hour), 0, 40)

	rep := h.pipe.Run(context.Background())

	require.Equal(t, run.OutcomeNotified, rep.Outcome)
	require.Equal(t, "m4", rep.NotifiedID)
	require.Len(t, h.sender.sent, 1)
}

func TestPipeline_NeverRegressesCursor(t *testing.T) {
	h := newHarness(t)
	created := t0
	h.cur.c = cursor.Cursor{LastNotifiedMatchID: "gone", TotalNotificationsSent: 7, LastNotifiedMatchCreatedAt: &created}
	h.src.ids = []string{"old"}
	h.src.matches["old"] = playedMatch("old", t0.Add(-2*time.Hour), 9, 1)

	rep := h.pipe.Run(context.Background())

	require.Equal(t, run.OutcomeNoNewMatches, rep.Outcome)
	require.Empty(t, h.sender.sent)
	require.Equal(t, "gone", h.cur.c.LastNotifiedMatchID)
	require.Equal(t, 7, h.cur.c.TotalNotificationsSent)
}

func TestPipeline_EmptyListing(t *testing.T) {
	h := newHarness(t)

	rep := h.pipe.Run(context.Background())

	require.Equal(t, run.OutcomeNoRecent, rep.Outcome)
	require.False(t, rep.Outcome.Failed())
	require.Empty(t, h.sender.sent)
	require.True(t, h.cur.c.IsZero())
	require.Equal(t, []string{"check started", "no recent matches"}, h.log.messages())
}

func TestPipeline_ListingFailureKeepsCursor(t *testing.T) {
	h := newHarness(t)
	h.cur.c = cursor.Cursor{LastNotifiedMatchID: "m3", TotalNotificationsSent: 2}
	h.src.listErr = errors.New("upstream 503")

	rep := h.pipe.Run(context.Background())

	require.Equal(t, run.OutcomeListingFailed, rep.Outcome)
	require.True(t, rep.Outcome.Failed())
	require.Empty(t, h.src.fetched)
	require.Equal(t, "m3", h.cur.c.LastNotifiedMatchID)
	require.Equal(t, 1, h.cur.saves)
	require.Equal(t, []string{"check started", "error: upstream 503"}, h.log.messages())
}

func TestPipeline_DeliveryFailureDoesNotFallBack(t *testing.T) {
	h := newHarness(t)
	h.src.ids = []string{"m5", "m4"}
	h.src.matches["m5"] = playedMatch("m5", t0, 1, 50)
	h.src.matches["m4"] = playedMatch("m4", t0.Add(-time.Hour), 1, 50)
	h.sender.err = errors.New("status 500")

	rep := h.pipe.Run(context.Background())

	require.Equal(t, run.OutcomeDeliveryFailed, rep.Outcome)
	require.Equal(t, []string{"m5"}, h.src.fetched)
	require.True(t, h.cur.c.IsZero())
	require.Empty(t, h.rec.got)
	require.Equal(t, []string{"check started", "notification failed: m5"}, h.log.messages())
}

func TestPipeline_SaveFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.src.ids = []string{"m5"}
	h.src.matches["m5"] = playedMatch("m5", t0, 1, 1)
	h.cur.saveErr = errors.New("disk full")

	rep := h.pipe.Run(context.Background())

	require.Equal(t, run.OutcomeNotified, rep.Outcome)
	require.Equal(t, 1, rep.PersistErrs)
	require.Len(t, h.log.entries, 2)
}

func TestPipeline_CorruptCursorStartsFromZero(t *testing.T) {
	h := newHarness(t)
	h.cur.loadErr = errors.New("invalid character")
	h.src.ids = []string{"m1"}
	h.src.matches["m1"] = playedMatch("m1", t0, 1, 1)

	rep := h.pipe.Run(context.Background())

	require.Equal(t, run.OutcomeNotified, rep.Outcome)
	require.Equal(t, 1, h.cur.c.TotalNotificationsSent)
}

func TestPipeline_FinalizesAfterCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.src.listErr = context.Canceled

	rep := h.pipe.Run(ctx)

	require.Equal(t, run.OutcomeListingFailed, rep.Outcome)
	require.Equal(t, 1, h.cur.saves)
	require.NotEmpty(t, h.log.entries)
}

func TestPipeline_UsesResolvedAccountID(t *testing.T) {
	h := newHarness(t)
	h.src.accounts = "account.kilma9"
	m := playedMatch("m1", t0, 2, 8)
	m.Participants[0].Stats.Name = "Kilma9_renamed"
	h.src.ids = []string{"m1"}
	h.src.matches["m1"] = m

	rep := h.pipe.Run(context.Background())

	require.Equal(t, run.OutcomeNotified, rep.Outcome)
}

func TestPipeline_SkipsWhenLocked(t *testing.T) {
	h := newHarness(t)
	h.pipe.deps.Locker = heldLock{}
	h.src.ids = []string{"m1"}

	rep := h.pipe.Run(context.Background())

	require.Equal(t, run.OutcomeSkipped, rep.Outcome)
	require.Zero(t, h.src.lists)
	require.Zero(t, h.cur.saves)
	require.Empty(t, h.log.entries)
}

func TestPipeline_UnreadableCursorIsNotOverwritten(t *testing.T) {
	for name, setup := range map[string]func(h *harness){
		"listing failure":   func(h *harness) { h.src.listErr = errors.New("upstream 503") },
		"no recent matches": func(h *harness) { h.src.ids = nil },
		"delivery failure": func(h *harness) {
			h.src.ids = []string{"m5"}
			h.src.matches["m5"] = playedMatch("m5", t0, 1, 1)
			h.sender.err = errors.New("status 500")
		},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.cur.c = cursor.Cursor{LastNotifiedMatchID: "m3", TotalNotificationsSent: 42}
			h.cur.loadErr = errors.New("connection reset by peer")
			setup(h)

			h.pipe.Run(context.Background())

			require.Zero(t, h.cur.saves)
			require.Equal(t, "m3", h.cur.c.LastNotifiedMatchID)
			require.Equal(t, 42, h.cur.c.TotalNotificationsSent)
			require.NotEmpty(t, h.log.entries)
		})
	}
}
