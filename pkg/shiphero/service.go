// Package shiphero implements the inventory, product, kit, warehouse and
// snapshot operations of the ShipHero GraphQL API as flat record sets.
package shiphero

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/saturnines/shiphero-core/pkg/config"
	"github.com/saturnines/shiphero-core/pkg/pagination"
	"github.com/saturnines/shiphero-core/pkg/record"
	"github.com/saturnines/shiphero-core/pkg/transform"
)

// HTTPDoer downloads snapshot documents.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Service runs resource operations over a Requester.
type Service struct {
	client            pagination.Requester
	pageSize          int
	downloader        HTTPDoer
	downloadTimeout   time.Duration
	pollInterval      time.Duration
	pollAttempts      int
	excludeWarehouses map[string]bool
	sleep             func(ctx context.Context, d time.Duration) error
	now               func() time.Time
	logger            *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPageSize sets the page size for paginated resources.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithDownloader sets the client used for snapshot downloads.
func WithDownloader(d HTTPDoer) Option {
	return func(s *Service) { s.downloader = d }
}

// WithDownloadTimeout bounds a snapshot download.
func WithDownloadTimeout(d time.Duration) Option {
	return func(s *Service) { s.downloadTimeout = d }
}

// WithPolling sets the snapshot poll interval and attempt bound.
func WithPolling(interval time.Duration, attempts int) Option {
	return func(s *Service) {
		s.pollInterval = interval
		if attempts > 0 {
			s.pollAttempts = attempts
		}
	}
}

// WithExcludedWarehouses hides warehouses from the account listing.
func WithExcludedWarehouses(ids ...string) Option {
	return func(s *Service) {
		for _, id := range ids {
			s.excludeWarehouses[id] = true
		}
	}
}

// WithSleepFunc replaces the poll sleep.
func WithSleepFunc(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.sleep = sleep }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service.
func NewService(client pagination.Requester, opts ...Option) *Service {
	s := &Service{
		client:            client,
		pageSize:          config.DefaultPageSize,
		downloader:        &http.Client{},
		downloadTimeout:   config.DefaultDownloadTimeout,
		pollInterval:      config.DefaultPollInterval,
		pollAttempts:      config.DefaultPollAttempts,
		excludeWarehouses: make(map[string]bool),
		sleep:             sleepWithContext,
		now:               time.Now,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceFromConfig applies the paging, snapshot and warehouse sections.
func NewServiceFromConfig(client pagination.Requester, cfg *config.Config, logger *slog.Logger) *Service {
	return NewService(client,
		WithPageSize(cfg.Paging.PageSize),
		WithDownloadTimeout(cfg.Snapshot.DownloadTimeout),
		WithPolling(cfg.Snapshot.PollInterval, cfg.Snapshot.MaxAttempts),
		WithExcludedWarehouses(cfg.Warehouses.ExcludeIDs...),
		WithLogger(logger),
	)
}

func (s *Service) paginator(resource, query, path string, flatten pagination.FlattenFunc) *pagination.Paginator {
	return &pagination.Paginator{
		Requester:      s.client,
		Query:          query,
		ConnectionPath: path,
		PageSize:       s.pageSize,
		Flatten:        flatten,
		Resource:       resource,
		Logger:         s.logger,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// optional maps an empty filter to a GraphQL null.
func optional(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// intOrNil keeps absent numbers as null and normalises present ones.
func intOrNil(v interface{}) interface{} {
	if n, ok := transform.Int(v); ok {
		return n
	}
	if f, ok := transform.Float(v); ok {
		return f
	}
	return nil
}

func single(r *record.Record) []*record.Record {
	return []*record.Record{r}
}
