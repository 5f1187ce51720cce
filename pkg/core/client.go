// Package core wraps the GraphQL transport with token refresh, throttling
// and bounded retries.
package core

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/saturnines/shiphero-core/pkg/auth"
	"github.com/saturnines/shiphero-core/pkg/config"
	"github.com/saturnines/shiphero-core/pkg/transport/graphql"
)

// Transport sends a single GraphQL request.
type Transport interface {
	Send(ctx context.Context, query string, variables map[string]interface{}) (*graphql.Response, error)
}

// TokenSource is the refreshable credential used by the transport.
type TokenSource interface {
	Expired() bool
	Refresh(ctx context.Context) error
}

// Client is the retrying, refreshing, rate limited GraphQL requester.
type Client struct {
	transport  Transport
	tokens     TokenSource
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

// ClientOption defines config for Client
type ClientOption func(*Client)

// WithMaxRetries sets how many times a transport failure is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBaseDelay sets the linear backoff unit.
func WithBaseDelay(d time.Duration) ClientOption {
	return func(c *Client) { c.baseDelay = d }
}

// WithRateLimit spaces requests evenly so that no 60 second window sends
// more than perMinute. Zero or less disables throttling.
func WithRateLimit(perMinute int) ClientOption {
	return func(c *Client) {
		c.limiter = newMinuteLimiter(perMinute)
	}
}

func newMinuteLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	n := time.Duration(perMinute)
	return rate.NewLimiter(rate.Every((time.Minute+n-1)/n), 1)
}

// WithLimiter installs a caller owned limiter.
func WithLimiter(l *rate.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// WithSleepFunc replaces the backoff sleep.
func WithSleepFunc(sleep func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) { c.sleep = sleep }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client. tokens may be nil when the transport uses a
// static credential; a 401 then fails immediately.
func NewClient(transport Transport, tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		transport:  transport,
		tokens:     tokens,
		maxRetries: config.DefaultMaxRetries,
		baseDelay:  config.DefaultBaseDelay,
		sleep:      sleepWithContext,
		logger:     slog.Default(),
	}
	WithRateLimit(config.DefaultRequestsPerMinute)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig wires token auth, the GraphQL transport and the retry
// client from a loaded Config.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, *auth.TokenAuth) {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{Timeout: cfg.API.Timeout}

	tokens := auth.NewTokenAuth(
		cfg.API.AuthURL,
		cfg.Credentials.AccessToken,
		cfg.Credentials.RefreshToken,
		cfg.Credentials.Email,
		auth.WithHTTPClient(httpClient),
		auth.WithTTL(cfg.API.TokenTTL),
		auth.WithLogger(logger),
	)
	transport := graphql.NewClient(graphql.NewBuilder(cfg.API.Endpoint, tokens), httpClient)

	return NewClient(transport, tokens,
		WithMaxRetries(cfg.Retry.MaxRetries),
		WithBaseDelay(cfg.Retry.BaseDelay),
		WithRateLimit(cfg.RateLimit.RequestsPerMinute),
		WithLogger(logger),
	), tokens
}
