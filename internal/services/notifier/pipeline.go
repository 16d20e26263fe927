package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/cursor"
	"github.com/NordCoder/Killfeed/internal/domain/match"
	"github.com/NordCoder/Killfeed/internal/domain/notification"
	"github.com/NordCoder/Killfeed/internal/domain/run"
	"github.com/NordCoder/Killfeed/internal/obs"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type State string

const (
	StateFetching   State = "FETCHING_MATCHES"
	StateScanning   State = "SCANNING"
	StateSending    State = "SENDING"
	StateDone       State = "DONE"
	StateFinalizing State = "FINALIZING"
)

const defaultFinalizeTimeout = 10 * time.Second

var (
	mRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_runs_total", Help: "Finished runs by outcome.",
	}, []string{"outcome"})
	mRunDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "notifier_run_duration_seconds", Help: "Run duration.",
		Buckets: prometheus.DefBuckets,
	})
	mSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_notifications_sent_total", Help: "Confirmed webhook deliveries.",
	})
	mSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_candidates_skipped_total", Help: "Candidates skipped while scanning.",
	}, []string{"reason"})
	mPersistErr = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_persistence_errors_total", Help: "Failed cursor, run log or history writes.",
	}, []string{"op"})
)

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Deps are the ports a run talks to. Recorder and Locker are optional.
type Deps struct {
	Matches  match.Source
	Sender   notification.Sender
	Cursors  cursor.Store
	RunLog   run.Log
	Recorder notification.Recorder
	Locker   cursor.Locker
	Clock    notification.Clock
}

type Options struct {
	Player          match.Player
	Composer        Composer
	FinalizeTimeout time.Duration
}

// Report describes one finished run.
type Report struct {
	Player      string        `json:"player"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Outcome     run.Outcome   `json:"outcome"`
	Listed      int           `json:"listed"`
	Fetched     []string      `json:"fetched,omitempty"`
	Skipped     int           `json:"skipped"`
	NotifiedID  string        `json:"notified_match_id,omitempty"`
	Cursor      cursor.Cursor `json:"cursor"`
	Error       string        `json:"error,omitempty"`
	PersistErrs int           `json:"persist_errors,omitempty"`
}

// Pipeline finds the newest unseen match of one player and delivers at most
// one notification per Run.
type Pipeline struct {
	log  *zap.Logger
	deps Deps
	opts Options
}

func NewPipeline(log *zap.Logger, deps Deps, opts Options) *Pipeline {
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}
	if opts.FinalizeTimeout <= 0 {
		opts.FinalizeTimeout = defaultFinalizeTimeout
	}
	if opts.Composer.loc == nil {
		opts.Composer = NewComposer(opts.Composer.brand, nil)
	}
	return &Pipeline{log: obs.Component(log, "notifier.pipeline"), deps: deps, opts: opts}
}

type runState struct {
	state   State
	player  match.Player
	cursor  cursor.Cursor
	ids     []string
	pick    *match.Match
	perf    match.Performance
	entries []run.Entry
	report  Report
	// the stored cursor is unknown; only a confirmed send may overwrite it
	loadFailed bool
	advanced   bool
}

func (s *runState) note(at time.Time, msg string) {
	s.entries = append(s.entries, run.Entry{At: at.UTC(), Message: msg})
}

func (p *Pipeline) Run(ctx context.Context) Report {
	start := p.deps.Clock.Now()

	ctx, span := otel.Tracer("notifier.pipeline").Start(ctx, "notifier.run",
		trace.WithAttributes(attribute.String("player", p.opts.Player.Name)),
	)
	defer span.End()
	log := obs.WithTrace(ctx, p.log)

	if p.deps.Locker != nil {
		unlock, err := p.deps.Locker.TryLock(ctx)
		if err != nil {
			rep := Report{Player: p.opts.Player.Name, StartedAt: start, FinishedAt: p.deps.Clock.Now(),
				Outcome: run.OutcomeSkipped, Error: err.Error()}
			if errors.Is(err, cursor.ErrLocked) {
				log.Warn("run skipped: cursor locked")
			} else {
				log.Error("run skipped: lock failed", zap.Error(err))
			}
			mRuns.WithLabelValues(string(rep.Outcome)).Inc()
			return rep
		}
		defer unlock()
	}

	st := &runState{
		state:  StateFetching,
		player: p.opts.Player,
		report: Report{Player: p.opts.Player.Name, StartedAt: start},
	}

	cur, err := p.deps.Cursors.Load(ctx)
	if err != nil {
		log.Warn("cursor unreadable, starting from zero", zap.Error(err))
		cur = cursor.Cursor{}
		st.loadFailed = true
	}
	st.cursor = cur
	st.note(start, "check started")
	log.Info("check started",
		zap.String("cursor", cur.LastNotifiedMatchID),
		zap.Int("total_sent", cur.TotalNotificationsSent))

	for st.state != StateFinalizing {
		log.Debug("state", zap.String("state", string(st.state)))
		switch st.state {
		case StateFetching:
			p.fetch(ctx, st)
		case StateScanning:
			p.scan(ctx, st)
		case StateSending:
			p.send(ctx, st)
		case StateDone:
			st.state = StateFinalizing
		}
	}

	p.finalize(ctx, st)

	rep := st.report
	rep.FinishedAt = p.deps.Clock.Now()
	rep.Cursor = st.cursor
	span.SetAttributes(attribute.String("outcome", string(rep.Outcome)))
	mRuns.WithLabelValues(string(rep.Outcome)).Inc()
	mRunDur.Observe(rep.FinishedAt.Sub(rep.StartedAt).Seconds())
	log.Info("check completed",
		zap.String("outcome", string(rep.Outcome)),
		zap.Int("skipped", rep.Skipped),
		zap.String("notified", rep.NotifiedID),
		zap.Duration("elapsed", rep.FinishedAt.Sub(rep.StartedAt)))
	return rep
}

func (p *Pipeline) fetch(ctx context.Context, st *runState) {
	listing, err := p.deps.Matches.ListMatches(ctx, st.player)
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		obs.WithTrace(ctx, p.log).Error("list matches failed", zap.Error(err))
		st.note(p.deps.Clock.Now(), "error: "+err.Error())
		st.report.Outcome = run.OutcomeListingFailed
		st.report.Error = err.Error()
		st.state = StateFinalizing
		return
	}

	if listing.Player.AccountID != "" {
		st.player.AccountID = listing.Player.AccountID
	}
	st.ids = listing.MatchIDs
	st.report.Listed = len(listing.MatchIDs)

	if len(st.ids) == 0 {
		st.note(p.deps.Clock.Now(), "no recent matches")
		st.report.Outcome = run.OutcomeNoRecent
		st.state = StateDone
		return
	}
	st.state = StateScanning
}

func (p *Pipeline) scan(ctx context.Context, st *runState) {
	log := obs.WithTrace(ctx, p.log)
	tr := otel.Tracer("notifier.pipeline")

	for _, id := range st.ids {
		if id == st.cursor.LastNotifiedMatchID {
			log.Debug("reached notified match", zap.String("match_id", id))
			break
		}

		cctx, span := tr.Start(ctx, "notifier.candidate", trace.WithAttributes(attribute.String("match.id", id)))
		st.report.Fetched = append(st.report.Fetched, id)

		m, err := p.deps.Matches.GetMatch(cctx, id)
		if err != nil {
			span.RecordError(err)
			span.End()
			p.skip(st, "unavailable")
			log.Warn("match unavailable, skipping", zap.String("match_id", id), zap.Error(err))
			continue
		}

		if st.cursor.Precedes(m.Summary.CreatedAt) {
			span.End()
			p.skip(st, "older_than_cursor")
			log.Warn("match older than notified one, skipping",
				zap.String("match_id", id), zap.Time("created_at", m.Summary.CreatedAt))
			continue
		}

		perf, ok := Extract(m, st.player)
		if !ok {
			span.End()
			p.skip(st, "player_absent")
			log.Warn("player not found in match, skipping", zap.String("match_id", id))
			continue
		}

		span.End()
		st.pick, st.perf = m, perf
		st.state = StateSending
		return
	}

	st.note(p.deps.Clock.Now(), "no new matches")
	st.report.Outcome = run.OutcomeNoNewMatches
	st.state = StateDone
}

func (p *Pipeline) skip(st *runState, reason string) {
	st.report.Skipped++
	mSkipped.WithLabelValues(reason).Inc()
}

func (p *Pipeline) send(ctx context.Context, st *runState) {
	log := obs.WithTrace(ctx, p.log)
	sum := st.pick.Summary
	payload := p.opts.Composer.Compose(st.perf, sum)

	log.Info("new match found",
		zap.String("match_id", sum.MatchID),
		zap.Int("kills", st.perf.Kills),
		zap.Int("placement", st.perf.Placement))

	if err := p.deps.Sender.Send(ctx, payload); err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		log.Error("notification failed", zap.String("match_id", sum.MatchID), zap.Error(err))
		st.note(p.deps.Clock.Now(), "notification failed: "+ShortID(sum.MatchID))
		st.report.Outcome = run.OutcomeDeliveryFailed
		st.report.Error = err.Error()
		st.state = StateDone
		return
	}

	now := p.deps.Clock.Now()
	st.cursor = st.cursor.Advance(sum.MatchID, sum.CreatedAt, now)
	st.advanced = true
	mapName := MapName(sum.MapName)
	st.note(now, fmt.Sprintf("notification sent: %d kills, #%d placement on %s", st.perf.Kills, st.perf.Placement, mapName))
	st.report.Outcome = run.OutcomeNotified
	st.report.NotifiedID = sum.MatchID
	mSent.Inc()

	if p.deps.Recorder != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			st.report.PersistErrs++
			mPersistErr.WithLabelValues("payload").Inc()
			log.Error("encode payload failed", zap.String("match_id", sum.MatchID), zap.Error(err))
		}
		n := &notification.Notification{
			PlayerName: p.opts.Player.Name,
			MatchID:    sum.MatchID,
			Kills:      st.perf.Kills,
			Placement:  st.perf.Placement,
			MapName:    mapName,
			MatchAt:    sum.CreatedAt.UTC(),
			SentAt:     now.UTC(),
			Payload:    string(raw),
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.FinalizeTimeout)
		if err := p.deps.Recorder.Record(rctx, n); err != nil {
			st.report.PersistErrs++
			mPersistErr.WithLabelValues("record").Inc()
			log.Error("record notification failed", zap.String("match_id", sum.MatchID), zap.Error(err))
		}
		cancel()
	}
	st.state = StateDone
}

func (p *Pipeline) finalize(ctx context.Context, st *runState) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.FinalizeTimeout)
	defer cancel()
	log := obs.WithTrace(ctx, p.log)

	if st.loadFailed && !st.advanced {
		log.Warn("cursor not saved: load failed and nothing was sent")
	} else if err := p.deps.Cursors.Save(fctx, st.cursor); err != nil {
		st.report.PersistErrs++
		mPersistErr.WithLabelValues("cursor").Inc()
		log.Error("save cursor failed", zap.Error(err))
	}

	trailer := run.Trailer{TotalSent: st.cursor.TotalNotificationsSent, LastCheck: p.deps.Clock.Now().UTC()}
	if err := p.deps.RunLog.Append(fctx, st.entries, trailer); err != nil {
		st.report.PersistErrs++
		mPersistErr.WithLabelValues("run_log").Inc()
		log.Error("append run log failed", zap.Error(err))
	}
}
