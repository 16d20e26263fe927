package notifier

import (
	"context"
	"errors"

	kafkax "github.com/NordCoder/Killfeed/internal/repository/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var mRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "notifier_check_requests_total", Help: "Check requests consumed by result.",
}, []string{"result"})

type consumer interface {
	Consume(ctx context.Context, h kafkax.Handler) error
}

// Controller runs the pipeline for every check request addressed to the
// tracked player.
type Controller struct {
	Log    *zap.Logger
	Sub    consumer
	Runner *Runner
	Player string
}

func (c *Controller) Run(ctx context.Context) error {
	err := c.Sub.Consume(ctx, kafkax.CheckRequestHandler(c.handle))
	if err != nil && !errors.Is(err, context.Canceled) {
		c.Log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return nil
}

func (c *Controller) handle(ctx context.Context, key []byte, req kafkax.CheckRequest) error {
	target := string(key)
	if target == "" {
		target = req.Player
	}
	if target != "" && target != c.Player {
		mRequests.WithLabelValues("ignored").Inc()
		c.Log.Debug("check-request for another player", zap.String("player", target))
		return nil
	}

	c.Log.Debug("check-request", zap.Time("requested_at", req.RequestedAt))
	rep := c.Runner.RunOnce(ctx)
	mRequests.WithLabelValues(string(rep.Outcome)).Inc()
	return nil
}
