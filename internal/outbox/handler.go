package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/kafka"
	"github.com/NordCoder/Killfeed/internal/domain/notification"
	"github.com/NordCoder/Killfeed/internal/domain/outbox"
	"github.com/NordCoder/Killfeed/internal/obs/retry"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	outboxHandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_handler_latency_seconds",
		Help:    "Latency of outbox handlers.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outboxHandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_handler_errors_total",
		Help: "Errors in outbox handlers (after retries).",
	}, []string{"kind"})
)

// EncodeMatchNotified is the outbox payload for KindMatchNotified.
func EncodeMatchNotified(n *notification.Notification) ([]byte, error) {
	return json.Marshal(n)
}

func instrument(k outbox.Kind, h outbox.KindHandler, pol retry.Policy) outbox.KindHandler {
	kind := k.String()
	tr := otel.Tracer("outbox.handler")
	if pol.Name == "" {
		pol.Name = "outbox_" + kind
	}
	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle")
		defer span.End()
		span.SetAttributes(attribute.String("outbox.kind", kind))

		start := time.Now()
		err := retry.Do(ctx, func() error { return h(ctx, data) }, pol)
		outboxHandlerLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			outboxHandlerErrors.WithLabelValues(kind).Inc()
		}
		return err
	}
}

func MakeGlobalOutboxHandler(pub kafka.MatchEvents, pol retry.Policy) outbox.GlobalHandler {
	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindMatchNotified:
			base := func(ctx context.Context, data []byte) error {
				var n notification.Notification
				if err := json.Unmarshal(data, &n); err != nil {
					return fmt.Errorf("unmarshal match-notified payload: %w", err)
				}
				return pub.PublishMatchNotified(ctx, &n)
			}
			return instrument(kind, base, pol), nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind: %d", kind)
		}
	}
}
