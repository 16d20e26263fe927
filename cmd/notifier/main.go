package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	config "github.com/NordCoder/Killfeed/internal/config/notifier"
	"github.com/NordCoder/Killfeed/internal/domain/match"
	"github.com/NordCoder/Killfeed/internal/obs"
	"github.com/NordCoder/Killfeed/internal/repository/kafka"
	"github.com/NordCoder/Killfeed/internal/services/notifier"
	"go.uber.org/zap"
)

const (
	exitOK        = 0
	exitConfig    = 2
	exitBootstrap = 1
)

func main() {
	os.Exit(realMain())
}

func realMain() (code int) {
	root, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", envOr("KILLFEED_CONFIG", "config/notifier.yaml"), "path to the yaml config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Printf("config: %v", err)
		return exitConfig
	}

	// logger
	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Printf("logger: %v", err)
		return exitBootstrap
	}
	defer func() { _ = l.Sync() }()
	defer func() {
		if r := recover(); r != nil {
			l.Error("panic", zap.Any("recovered", r), zap.Stack("stack"))
			code = exitOK
		}
	}()
	l.Info("starting notifier",
		zap.String("player", cfg.Player.Name),
		zap.String("mode", cfg.Sched.Mode),
		zap.String("driver", cfg.Cursor.Driver),
		zap.String("env", cfg.App.Env),
		zap.String("ver", cfg.App.Version))

	// otel
	otelCloser, err := obs.SetupOTel(root, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Error("otel init", zap.Error(err))
		return exitBootstrap
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// stores
	st, err := initStores(root, cfg, l)
	if err != nil {
		l.Error("store bootstrap", zap.Error(err))
		return exitBootstrap
	}
	defer st.close()

	// events
	ev := initEvents(root, cfg, st, l)
	defer ev.close()

	// wiring
	stats, hook := initUpstream(cfg, l)
	pipe := notifier.NewPipeline(l, notifier.Deps{
		Matches:  stats,
		Sender:   hook,
		Cursors:  st.cursors,
		RunLog:   st.runLog,
		Recorder: ev.recorder,
		Locker:   st.locker,
	}, notifier.Options{
		Player:          match.Player{Name: cfg.Player.Name, AccountID: cfg.Player.AccountID},
		Composer:        notifier.NewComposer(cfg.Compose.Brand, cfg.Location()),
		FinalizeTimeout: cfg.Sched.FinalizeAfter,
	})
	runner := notifier.NewRunner(l, pipe, cfg.Sched.RunTimeout)

	if cfg.Sched.Mode == config.ModeOnce {
		rep := runner.RunOnce(root)
		flushOutbox(ev, cfg, l)
		l.Info("run finished", zap.String("outcome", string(rep.Outcome)), zap.Bool("failed", rep.Outcome.Failed()))
		return exitOK
	}

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		if err := st.ping(ctx); err != nil {
			return err
		}
		return runner.Health(ctx)
	}, func() any { return runner.Status() }, l)

	if ev.outbox != nil {
		ev.outbox.Start(root)
	}

	errCh := make(chan error, 1)
	switch cfg.Sched.Mode {
	case config.ModeCron:
		go func() { errCh <- runner.RunCron(root, cfg.Sched.Cron, cfg.Location()) }()
	case config.ModeKafka:
		cons := kafka.BootstrapConsumer(root, &kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topic:   cfg.Kafka.RequestTopic,
		}, l).WithLogger(l)
		defer func() { _ = cons.Close() }()
		ctrl := &notifier.Controller{Log: l, Sub: cons, Runner: runner, Player: cfg.Player.Name}
		go func() { errCh <- ctrl.Run(root) }()
	}

	// loop
	select {
	case <-root.Done():
		l.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("trigger stopped", zap.Error(err))
		}
	}
	stop()

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := ms.Shutdown(shCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Warn("metrics shutdown", zap.Error(err))
	}
	if ev.outbox != nil {
		ev.outbox.Wait()
	}
	l.Info("bye")
	return exitOK
}

func flushOutbox(ev *events, cfg *config.Config, l *zap.Logger) {
	if ev.outbox == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	n, err := ev.outbox.Flush(ctx)
	if err != nil {
		l.Warn("outbox flush", zap.Error(err))
	}
	l.Debug("outbox flushed", zap.Int("published", n))
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
