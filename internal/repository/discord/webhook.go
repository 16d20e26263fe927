package discord

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/notification"
	"github.com/NordCoder/Killfeed/internal/obs"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

type Config struct {
	URL       string
	UserAgent string
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ notification.Sender = (*Webhook)(nil)

// Webhook posts payloads to one webhook URL. It makes exactly one attempt per
// Send; callers decide whether to try again.
type Webhook struct {
	cfg  Config
	http httpDoer
	log  *zap.Logger
}

// DeliveryError is a non-2xx answer from the webhook endpoint.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook: status %d: %s", e.StatusCode, e.Body)
}

func New(cfg Config, hc httpDoer) *Webhook {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{cfg: cfg, http: hc, log: obs.Component(zap.L(), "discord.webhook")}
}

func (w *Webhook) WithLogger(l *zap.Logger) *Webhook {
	if l == nil {
		return w
	}
	cp := *w
	cp.log = obs.Component(l, "discord.webhook")
	return &cp
}

func (w *Webhook) Send(ctx context.Context, p notification.Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", w.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := w.http.Do(req)
	if err != nil {
		w.log.Warn("webhook post failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		derr := &DeliveryError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		w.log.Warn("webhook rejected", zap.Int("status", resp.StatusCode), zap.String("body", derr.Body))
		return derr
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	w.log.Info("webhook delivered", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))
	return nil
}
