package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

func OutboxPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "outbox",
		Attempts: 6,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("outbox retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("outbox retries exhausted", zap.Error(err))
			}
		},
	}
}

// UpstreamPolicy retries stats API calls that retryable reports as transient.
func UpstreamPolicy(name string, attempts int, retryable func(error) bool, log *zap.Logger) Policy {
	return Policy{
		Name:      name,
		Attempts:  attempts,
		Backoff:   ExpoJitter{Base: 500 * time.Millisecond, Max: 10 * time.Second, Jitter: 0.2},
		Retryable: retryable,
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Debug("upstream attempt failed", zap.String("op", name), zap.Int("attempt", i+1), zap.Error(err))
			}
		},
	}
}
