package pubg

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

var ErrUnauthorized = errors.New("pubg: unauthorized")

// StatusError is a non-2xx answer from the stats API.
type StatusError struct {
	Op         string
	StatusCode int
	After      time.Duration
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("pubg %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("pubg %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) RetryAfter() time.Duration { return e.After }

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

// Retryable reports whether another attempt may succeed: rate limiting,
// server errors and transport failures.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// parseRetryAfter accepts delta-seconds or an HTTP date, capped at a minute.
func parseRetryAfter(v string, now time.Time) time.Duration {
	const maxWait = 60 * time.Second
	if v == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = at.Sub(now)
	}
	if d < 0 {
		return 0
	}
	if d > maxWait {
		return maxWait
	}
	return d
}
