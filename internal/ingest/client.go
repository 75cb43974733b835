// Package ingest fetches wallet activity, leaderboard and market data from
// the Polymarket public APIs and normalizes it into store records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// DataAPIURL serves leaderboard and activity data.
	DataAPIURL = "https://data-api.polymarket.com"
	// GammaAPIURL serves market metadata.
	GammaAPIURL = "https://gamma-api.polymarket.com"
	// LiveDataURL is the real-time activity websocket.
	LiveDataURL = "wss://ws-live-data.polymarket.com"

	// MaxPageSize is the largest page the activity endpoint returns.
	MaxPageSize = 500
)

var (
	// ErrCircuitOpen is returned while the breaker rejects requests.
	ErrCircuitOpen = errors.New("ingest: circuit open")

	// ErrInvalidConfig is returned by NewClient for unusable settings.
	ErrInvalidConfig = errors.New("ingest: invalid config")
)

// StatusError is a non-2xx API response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Config controls the API client.
type Config struct {
	DataAPIURL string `yaml:"data_api_url"`
	GammaURL   string `yaml:"gamma_url"`

	Timeout time.Duration `yaml:"timeout"`

	// Token bucket shared by every request of the client.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`

	// Retries on transport errors, 429 and 5xx with exponential backoff.
	MaxRetries int           `yaml:"max_retries"`
	RetryWait  time.Duration `yaml:"retry_wait"`

	// CacheTTL of zero disables the GET cache.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	PageSize      int  `yaml:"page_size"`
	ActivityLimit int  `yaml:"activity_limit"`
	EnrichMarkets bool `yaml:"enrich_markets"`

	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
}

// DefaultConfig returns the settings used against the public endpoints.
func DefaultConfig() Config {
	return Config{
		DataAPIURL:      DataAPIURL,
		GammaURL:        GammaAPIURL,
		Timeout:         30 * time.Second,
		RateLimit:       5,
		Burst:           5,
		MaxRetries:      3,
		RetryWait:       time.Second,
		CacheTTL:        5 * time.Minute,
		PageSize:        MaxPageSize,
		ActivityLimit:   MaxPageSize,
		EnrichMarkets:   true,
		BreakerFailures: 5,
		BreakerTimeout:  60 * time.Second,
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case c.DataAPIURL == "":
		return fmt.Errorf("%w: data api url is required", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	case c.RateLimit <= 0 || c.Burst < 1:
		return fmt.Errorf("%w: rate limit must be positive with burst >= 1", ErrInvalidConfig)
	case c.MaxRetries < 0 || c.RetryWait < 0:
		return fmt.Errorf("%w: retries and retry wait must not be negative", ErrInvalidConfig)
	case c.CacheTTL < 0:
		return fmt.Errorf("%w: cache ttl must not be negative", ErrInvalidConfig)
	case c.PageSize < 1 || c.PageSize > MaxPageSize:
		return fmt.Errorf("%w: page size must be in [1, %d]", ErrInvalidConfig, MaxPageSize)
	case c.ActivityLimit < 1:
		return fmt.Errorf("%w: activity limit must be at least 1", ErrInvalidConfig)
	case c.BreakerFailures < 1:
		return fmt.Errorf("%w: breaker failures must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Client is a rate limited, cached and circuit-broken Polymarket API client.
// It is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cache   *Cache
}

// NewClient creates a client for cfg.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		cache:   NewCache(cfg.CacheTTL),
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "polymarket",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_state_changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	c.http = resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "polyinsider-scout").
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(8 * cfg.RetryWait).
		AddRetryCondition(retryable).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return c.limiter.Wait(r.Context())
		})

	return c, nil
}

// Config returns the client settings.
func (c *Client) Config() Config { return c.cfg }

// ClearCache drops every cached response.
func (c *Client) ClearCache() { c.cache.Clear() }

func retryable(r *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
}

// get performs a cached GET and returns the raw body of a 2xx response.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	key := endpoint + "?" + params.Encode()
	if body, ok := c.cache.Get(key); ok {
		return body, nil
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(params).
			Get(endpoint)
		if err != nil {
			return nil, err
		}
		if retryable(resp, nil) {
			return nil, &StatusError{Code: resp.StatusCode(), URL: endpoint}
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, endpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", endpoint, err)
	}

	resp := out.(*resty.Response)
	if resp.IsError() {
		return nil, fmt.Errorf("get %s: %w", endpoint, &StatusError{Code: resp.StatusCode(), URL: endpoint})
	}

	body := resp.Body()
	c.cache.Set(key, body)
	return body, nil
}
