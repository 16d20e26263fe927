package pubg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/match"
	"github.com/NordCoder/Killfeed/internal/obs"
	"github.com/NordCoder/Killfeed/internal/obs/retry"
	json "github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.pubg.com"
	mediaType      = "application/vnd.api+json"
	maxErrBody     = 512
)

type Config struct {
	BaseURL   string
	APIKey    string
	Platform  string
	UserAgent string
	Pacing    time.Duration
	Attempts  int
	CacheTTL  time.Duration
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ match.Source = (*Client)(nil)

// Client talks to the PUBG stats API. Calls are serialized through a token
// bucket so that consecutive requests are spaced by Config.Pacing.
type Client struct {
	cfg     Config
	http    httpDoer
	limiter *rate.Limiter
	ids     *cache.Cache
	log     *zap.Logger
}

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pubg_requests_total",
		Help: "Stats API requests by operation and status code.",
	}, []string{"op", "code"})
	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pubg_request_duration_seconds",
		Help:    "Stats API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

func New(cfg Config, hc httpDoer) *Client {
	cfg.BaseURL = normalizeBaseURL(cfg.BaseURL)
	if cfg.Platform == "" {
		cfg.Platform = "steam"
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if hc == nil {
		hc = http.DefaultClient
	}

	limit := rate.Inf
	if cfg.Pacing > 0 {
		limit = rate.Every(cfg.Pacing)
	}

	return &Client{
		cfg:     cfg,
		http:    hc,
		limiter: rate.NewLimiter(limit, 1),
		ids:     cache.New(cfg.CacheTTL, cfg.CacheTTL),
		log:     obs.Component(zap.L(), "pubg.client"),
	}
}

func (c *Client) WithLogger(l *zap.Logger) *Client {
	if l == nil {
		return c
	}
	cp := *c
	cp.log = obs.Component(l, "pubg.client")
	return &cp
}

// ListMatches returns the player's recent match ids in upstream order, newest
// first. A player without an account id is resolved by name; the lookup
// answer already carries the match list, so no second call is made.
func (c *Client) ListMatches(ctx context.Context, p match.Player) (match.Listing, error) {
	accountID := p.AccountID
	if accountID == "" {
		if v, ok := c.ids.Get(p.Name); ok {
			accountID = v.(string)
		}
	}

	var res playerResource
	if accountID == "" {
		var out playersResponse
		q := url.Values{"filter[playerNames]": {p.Name}}
		if err := c.get(ctx, "lookup_player", "/players?"+q.Encode(), &out); err != nil {
			if isStatus(err, http.StatusNotFound) {
				return match.Listing{}, fmt.Errorf("lookup %q: %w", p.Name, match.ErrPlayerNotFound)
			}
			return match.Listing{}, fmt.Errorf("lookup %q: %w", p.Name, err)
		}
		found, ok := pickPlayer(out.Data, p.Name)
		if !ok {
			return match.Listing{}, fmt.Errorf("lookup %q: %w", p.Name, match.ErrPlayerNotFound)
		}
		res = found
		c.ids.Set(p.Name, res.ID, cache.DefaultExpiration)
		c.log.Debug("player resolved", zap.String("player", p.Name), zap.String("account_id", res.ID))
	} else {
		var out playerResponse
		if err := c.get(ctx, "get_player", "/players/"+url.PathEscape(accountID), &out); err != nil {
			if isStatus(err, http.StatusNotFound) {
				c.ids.Delete(p.Name)
				return match.Listing{}, fmt.Errorf("player %s: %w", accountID, match.ErrPlayerNotFound)
			}
			return match.Listing{}, fmt.Errorf("player %s: %w", accountID, err)
		}
		res = out.Data
	}

	ids := make([]string, 0, len(res.Relationships.Matches.Data))
	for _, m := range res.Relationships.Matches.Data {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}

	name := p.Name
	if name == "" {
		name = res.Attributes.Name
	}
	return match.Listing{
		Player:   match.Player{Name: name, AccountID: res.ID},
		MatchIDs: ids,
	}, nil
}

func (c *Client) GetMatch(ctx context.Context, matchID string) (*match.Match, error) {
	var out matchResponse
	if err := c.get(ctx, "get_match", "/matches/"+url.PathEscape(matchID), &out); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("match %s: %w", matchID, match.ErrNotFound)
		}
		return nil, fmt.Errorf("match %s: %w", matchID, err)
	}
	m, err := toMatch(&out)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", matchID, err)
	}
	return m, nil
}

func (c *Client) get(ctx context.Context, op, path string, dst any) error {
	endpoint := c.cfg.BaseURL + "/shards/" + url.PathEscape(c.cfg.Platform) + path
	pol := retry.UpstreamPolicy("pubg_"+op, c.cfg.Attempts, Retryable, c.log)
	return retry.Do(ctx, func() error { return c.do(ctx, op, endpoint, dst) }, pol)
}

func (c *Client) do(ctx context.Context, op, endpoint string, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", mediaType)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	upstreamLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		upstreamRequests.WithLabelValues(op, "error").Inc()
		return err
	}
	defer resp.Body.Close()
	upstreamRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return &StatusError{
			Op:         op,
			StatusCode: resp.StatusCode,
			After:      parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", op, err)
	}
	c.log.Debug("upstream ok", zap.String("op", op), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func pickPlayer(players []playerResource, name string) (playerResource, bool) {
	for _, p := range players {
		if p.Attributes.Name == name {
			return p, true
		}
	}
	return playerResource{}, false
}

func isStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

func normalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(raw, "/")
}
