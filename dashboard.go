package dashfeed

import (
	"context"
	"fmt"
	"time"

	"github.com/jpalmerr/dashfeed/internal/scheduler"
	"github.com/jpalmerr/dashfeed/internal/server"
)

const (
	defaultRefreshInterval = 60 * time.Second
	defaultPort            = 8080
)

// Dashboard keeps a [Fetcher] refreshed on a fixed interval and serves the
// resulting state over HTTP.
//
// The typical lifecycle is:
//
//	d, err := dashfeed.New("https://script.google.com/macros/s/XXX/exec")
//	if err != nil {
//	    slog.Error("failed to create dashboard", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	d.Start(ctx) // blocks until context cancelled
type Dashboard struct {
	fetcher         *Fetcher
	refreshInterval time.Duration
	port            int
	filters         Filters
	cfg             *dfConfig
}

// New creates a [Dashboard] for the given endpoint URL.
//
// Defaults:
//   - Refresh interval: 60 seconds
//   - Port: 8080 (0 disables the HTTP server)
//   - Transports: direct, jsonp, proxy
//
// Returns an error if the endpoint or any option is invalid.
func New(endpoint string, opts ...Option) (*Dashboard, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	f, err := newFetcher(endpoint, cfg)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		fetcher:         f,
		refreshInterval: cfg.refreshInterval,
		port:            cfg.port,
		filters:         cfg.filters,
		cfg:             cfg,
	}, nil
}

// Start refreshes immediately, then every refresh interval, and serves the
// HTTP API until ctx is cancelled.
//
// Refreshes are not de-duplicated: if the endpoint is slower than the
// interval, refreshes overlap and the last one to complete wins.
//
// Returns nil on graceful shutdown, or an error if the HTTP server fails to
// start.
func (d *Dashboard) Start(ctx context.Context) error {
	logger := d.fetcher.logger

	logger.Info("dashfeed starting",
		"endpoint", d.fetcher.Endpoint(),
		"transports", d.fetcher.Transports(),
	)
	logger.Info("refresh configured", "interval", d.refreshInterval.String())

	if ctx.Err() != nil {
		return nil
	}

	if d.port != 0 {
		httpServer := server.NewServer(d.fetcher.store, d.fetcher.metrics.Handler(), d.port, logger)
		if err := httpServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		logger.Info("dashboard api available", "url", fmt.Sprintf("http://localhost:%d/api/state", d.port))
	}

	opts := []scheduler.Option{scheduler.WithLogger(logger)}
	if d.cfg.clock != nil {
		opts = append(opts, scheduler.WithClock(d.cfg.clock))
	}
	sched := scheduler.New(d.refreshInterval, func(ctx context.Context) {
		d.fetcher.Refresh(ctx, d.filters)
	}, opts...)
	sched.Start(ctx)

	<-ctx.Done()
	sched.Stop()
	d.fetcher.Close()
	logger.Info("dashfeed stopped")
	return nil
}

// Fetcher returns the dashboard's [Fetcher], for on-demand refreshes with
// other filters.
func (d *Dashboard) Fetcher() *Fetcher {
	return d.fetcher
}

// State returns the current state and whether any fetch has succeeded yet.
func (d *Dashboard) State() (DashboardState, bool) {
	return d.fetcher.State()
}

// Port returns the configured HTTP port.
func (d *Dashboard) Port() int {
	return d.port
}

// RefreshInterval returns the configured interval between refreshes.
func (d *Dashboard) RefreshInterval() time.Duration {
	return d.refreshInterval
}
