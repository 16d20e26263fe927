package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/NordCoder/Killfeed/internal/obs"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrTopicNotReady = errors.New("topic not ready")

type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
}

// EnsureTopics creates the missing topics through the cluster controller and
// waits up to maxWait until every one of them reports partitions.
func EnsureTopics(ctx context.Context, brokers []string, maxWait time.Duration, log *zap.Logger, specs ...TopicSpec) error {
	if len(brokers) == 0 {
		return errors.New("kafka: no brokers")
	}
	if maxWait <= 0 {
		maxWait = 5 * time.Second
	}
	log = obs.Component(log, "kafka.admin")

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial %s: %w", brokers[0], err)
	}
	defer conn.Close()

	ctrl, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	cc, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(ctrl.Host, strconv.Itoa(ctrl.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer cc.Close()

	cfgs := make([]kafka.TopicConfig, 0, len(specs))
	for _, s := range specs {
		cfgs = append(cfgs, kafka.TopicConfig{
			Topic:             s.Name,
			NumPartitions:     max(s.NumPartitions, 1),
			ReplicationFactor: max(s.ReplicationFactor, 1),
		})
	}
	if err := cc.CreateTopics(cfgs...); err != nil {
		// already-exists comes back here too
		log.Debug("create topics", zap.Error(err))
	}

	deadline := time.Now().Add(maxWait)
	for _, s := range specs {
		for {
			ps, err := conn.ReadPartitions(s.Name)
			if err == nil && len(ps) > 0 {
				log.Info("topic ready", zap.String("topic", s.Name), zap.Int("partitions", len(ps)))
				break
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("%s: %w", s.Name, ErrTopicNotReady)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(200 * time.Millisecond):
			}
		}
	}
	return nil
}
