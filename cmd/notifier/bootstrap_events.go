package main

import (
	"context"

	config "github.com/NordCoder/Killfeed/internal/config/notifier"
	"github.com/NordCoder/Killfeed/internal/domain/notification"
	"github.com/NordCoder/Killfeed/internal/obs/retry"
	"github.com/NordCoder/Killfeed/internal/outbox"
	"github.com/NordCoder/Killfeed/internal/repository/kafka"
	pg "github.com/NordCoder/Killfeed/internal/repository/postgres"
	notifierrepo "github.com/NordCoder/Killfeed/internal/services/notifier/repo"
	"go.uber.org/zap"
)

type events struct {
	recorder notification.Recorder
	outbox   *outbox.Runner
	close    func()
}

// initEvents decides where confirmed notifications go. With postgres the
// history row and the outbox event share a transaction and the outbox runner
// publishes to kafka; other drivers publish directly.
func initEvents(ctx context.Context, cfg *config.Config, st *stores, l *zap.Logger) *events {
	ev := &events{recorder: st.history, close: func() {}}
	if !cfg.Kafka.Enable {
		return ev
	}

	prod := kafka.BootstrapProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.NotifiedTopic, l)
	ev.close = func() { _ = prod.Close() }
	pub := kafka.NewMatchEventsKafka(prod, nil)

	if st.db == nil {
		direct := notifierrepo.EventsRecorder{P: pub}
		if st.history != nil {
			ev.recorder = notifierrepo.Recorders{st.history, direct}
		} else {
			ev.recorder = direct
		}
		return ev
	}

	outboxRepo := pg.NewOutboxRepo(st.db)
	ev.recorder = notifierrepo.OutboxRecorder{
		Tx:     pg.NewTransactor(st.db, l),
		Notifs: pg.NewNotificationRepo(st.db),
		Outbox: outboxRepo,
		Encode: outbox.EncodeMatchNotified,
	}
	ev.outbox = outbox.NewOutboxRunner(
		l,
		outboxRepo,
		outbox.MakeGlobalOutboxHandler(pub, retry.OutboxPolicy(l)),
		cfg.Outbox.Workers,
		cfg.Outbox.BatchSize,
		cfg.Outbox.Wait,
		cfg.Outbox.InProgressTTL,
	)
	return ev
}
