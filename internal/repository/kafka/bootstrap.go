package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const bootstrapWait = 5 * time.Second

// BootstrapConsumer makes sure the topic exists before joining the group. A
// broker that is still starting only costs a warning; the reader retries.
func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, logger *zap.Logger) *Consumer {
	if err := EnsureTopics(ctx, cfg.Brokers, bootstrapWait, logger, TopicSpec{Name: cfg.Topic}); err != nil && logger != nil {
		logger.Warn("ensure consumer topic", zap.String("topic", cfg.Topic), zap.Error(err))
	}
	return NewConsumer(cfg)
}

func BootstrapProducer(ctx context.Context, brokers []string, topic string, logger *zap.Logger) *Producer {
	if err := EnsureTopics(ctx, brokers, bootstrapWait, logger, TopicSpec{Name: topic}); err != nil && logger != nil {
		logger.Warn("ensure producer topic", zap.String("topic", topic), zap.Error(err))
	}
	return NewProducer(brokers, topic).WithLogger(logger)
}
