package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NordCoder/Killfeed/internal/obs"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// UnhealthyAfter is the number of failed runs in a row after which the
// process reports itself unhealthy.
const UnhealthyAfter = 3

type runnable interface {
	Run(ctx context.Context) Report
}

// Status is a snapshot of the runner exposed on the ops server.
type Status struct {
	Runs                int       `json:"runs"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Last                *Report   `json:"last,omitempty"`
	NextRun             time.Time `json:"next_run,omitempty"`
}

// Runner triggers pipeline runs one at a time and keeps the last report.
type Runner struct {
	log        *zap.Logger
	pipe       runnable
	runTimeout time.Duration

	busy sync.Mutex

	mu     sync.RWMutex
	status Status
}

func NewRunner(log *zap.Logger, pipe runnable, runTimeout time.Duration) *Runner {
	return &Runner{log: obs.Component(log, "notifier.runner"), pipe: pipe, runTimeout: runTimeout}
}

// RunOnce executes a single run. Concurrent callers are serialized.
func (r *Runner) RunOnce(ctx context.Context) Report {
	r.busy.Lock()
	defer r.busy.Unlock()

	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}

	rep := r.pipe.Run(ctx)

	r.mu.Lock()
	r.status.Runs++
	if rep.Outcome.Failed() {
		r.status.ConsecutiveFailures++
	} else if rep.Outcome != "" {
		r.status.ConsecutiveFailures = 0
	}
	r.status.Last = &rep
	r.mu.Unlock()
	return rep
}

// RunCron runs the pipeline on a standard five-field cron schedule until ctx
// is done. A tick that fires while a run is in progress is dropped.
func (r *Runner) RunCron(ctx context.Context, spec string, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("parse cron %q: %w", spec, err)
	}

	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{r.log}), cron.SkipIfStillRunning(cronLogger{r.log})),
	)
	id := c.Schedule(sched, cron.FuncJob(func() {
		r.RunOnce(ctx)
		r.setNext(c, 0)
	}))
	c.Start()
	r.setNext(c, id)
	r.log.Info("cron started", zap.String("spec", spec), zap.String("tz", loc.String()))

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	r.log.Info("cron stopped")
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func (r *Runner) setNext(c *cron.Cron, id cron.EntryID) {
	var next time.Time
	for _, e := range c.Entries() {
		if id == 0 || e.ID == id {
			next = e.Next
			break
		}
	}
	r.mu.Lock()
	r.status.NextRun = next
	r.mu.Unlock()
}

func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.status
	if s.Last != nil {
		cp := *s.Last
		s.Last = &cp
	}
	return s
}

// Health fails once UnhealthyAfter runs in a row have failed.
func (r *Runner) Health(context.Context) error {
	s := r.Status()
	if s.ConsecutiveFailures >= UnhealthyAfter {
		return fmt.Errorf("%d consecutive failed runs", s.ConsecutiveFailures)
	}
	return nil
}

type cronLogger struct{ l *zap.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
