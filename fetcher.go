package dashfeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
	"github.com/jpalmerr/dashfeed/internal/metrics"
	"github.com/jpalmerr/dashfeed/internal/store"
	"github.com/jpalmerr/dashfeed/internal/transport"
)

// Transport is one way of reaching the endpoint.
//
// Fetch receives the fully built request URL (filters and cacheBust
// included) and returns the JSON payload. A Transport must not modify the
// URL. Transports are tried in order until one returns a payload that
// decodes into a [DashboardState].
type Transport = transport.Strategy

// Fetcher requests dashboard data and owns the resulting state.
//
// A Fetcher is safe for concurrent use. Concurrent fetches are not
// de-duplicated; each successful one replaces the state, so the last to
// complete wins.
type Fetcher struct {
	endpoint     *url.URL
	chain        []Transport
	store        *store.MemoryStore
	replaceMu    sync.Mutex
	client       *transport.Client
	metrics      *metrics.Metrics
	logger       *slog.Logger
	clock        clockwork.Clock
	viewHook     ViewHook
	fallbackHook ViewHook
	errorHook    func(error)
}

// NewFetcher creates a [Fetcher] for the given endpoint URL.
//
// The endpoint must be an absolute http or https URL; its own query
// parameters are kept on every request.
//
// Example:
//
//	f, err := dashfeed.NewFetcher("https://script.google.com/macros/s/XXX/exec",
//	    dashfeed.WithViewHook(render),
//	)
//	state, err := f.Fetch(ctx, dashfeed.Filters{StudentID: "s-42"})
func NewFetcher(endpoint string, opts ...Option) (*Fetcher, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return newFetcher(endpoint, cfg)
}

func newFetcher(endpoint string, cfg *dfConfig) (*Fetcher, error) {
	u, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	f := &Fetcher{
		endpoint:     u,
		store:        store.NewMemoryStore(),
		metrics:      metrics.New(),
		logger:       logger,
		clock:        clock,
		viewHook:     cfg.viewHook,
		fallbackHook: cfg.fallbackHook,
		errorHook:    cfg.errorHook,
	}

	if len(cfg.customChain) > 0 {
		f.chain = cfg.customChain
		return f, nil
	}

	f.client = transport.NewClientWith(cfg.httpClient)
	settings := transport.Settings{
		Headers: copyMap(cfg.headers),
		Timeout: cfg.timeout,
		Logger:  logger,
	}
	for _, name := range cfg.transports {
		switch name {
		case TransportDirect:
			f.chain = append(f.chain, transport.NewDirect(f.client, settings))
		case TransportJSONP:
			f.chain = append(f.chain, transport.NewJSONP(f.client, settings))
		case TransportProxy:
			f.chain = append(f.chain, transport.NewProxy(f.client, cfg.proxyURL, settings))
		}
	}
	return f, nil
}

func parseEndpoint(endpoint string) (*url.URL, error) {
	if endpoint == "" {
		return nil, errors.New("endpoint url cannot be empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("endpoint url must have a host")
	}
	return u, nil
}

// Endpoint returns the configured endpoint URL.
func (f *Fetcher) Endpoint() string {
	return f.endpoint.String()
}

// Transports returns the names of the transports, in the order tried.
func (f *Fetcher) Transports() []string {
	names := make([]string, len(f.chain))
	for i, t := range f.chain {
		names[i] = t.Name()
	}
	return names
}

// State returns the current state and whether any fetch has succeeded yet.
func (f *Fetcher) State() (DashboardState, bool) {
	snap, ok := f.store.Current()
	if !ok {
		return DashboardState{}, false
	}
	return fromStoreState(snap.State), true
}

// Fetch requests the dashboard data, trying each transport in order.
//
// The first transport whose payload decodes into a [DashboardState] wins:
// the state replaces the owned state wholesale and is returned. If every
// transport fails, Fetch returns a *[FetchFailure] and the owned state is
// left untouched. Transports that remain when ctx is done are skipped.
func (f *Fetcher) Fetch(ctx context.Context, filters Filters) (DashboardState, error) {
	start := f.clock.Now()
	target := BuildURL(f.endpoint, filters, start)

	var attempts *multierror.Error
	for _, t := range f.chain {
		name := t.Name()

		state, err := f.attempt(ctx, t, target)
		f.metrics.TransportAttempt(name, err)
		if err != nil {
			f.logger.Warn("transport failed",
				"transport", name,
				"error", err.Error(),
			)
			attempts = multierror.Append(attempts, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		now := f.clock.Now()
		f.replace(store.Snapshot{
			State:     toStoreState(state),
			UpdatedAt: now,
			Transport: name,
		})
		f.metrics.Fetch(now.Sub(start), nil)

		f.logger.Info("data fetched",
			"transport", name,
			"conversations", len(state.Conversations),
			"students", len(state.Students),
			"latency_ms", now.Sub(start).Milliseconds(),
		)
		return state, nil
	}

	failure := newFetchFailure(attempts)
	f.metrics.Fetch(f.clock.Now().Sub(start), failure)
	return DashboardState{}, failure
}

// replace stores snap and updates the state gauges as one step. The gauges
// describe the snapshot stored last.
func (f *Fetcher) replace(snap store.Snapshot) {
	f.replaceMu.Lock()
	defer f.replaceMu.Unlock()
	f.store.Replace(snap)
	f.metrics.StateSize(len(snap.State.Conversations), len(snap.State.Students))
}

// attempt runs one transport and decodes its payload.
func (f *Fetcher) attempt(ctx context.Context, t Transport, target *url.URL) (DashboardState, error) {
	body, err := t.Fetch(ctx, target)
	if err != nil {
		return DashboardState{}, err
	}
	state, err := decodeState(body)
	if err != nil {
		return DashboardState{}, &ParseError{Transport: t.Name(), Err: err}
	}
	return state, nil
}

// Refresh fetches the data and notifies the view.
//
// On success the primary view hook is called with the new state, or the
// fallback hook if no primary hook is registered, and the state is
// returned. The hook and the caller each get their own copy. On failure
// Refresh logs the error, hands it to the error hook if one is registered,
// and returns nil. It never returns an error.
func (f *Fetcher) Refresh(ctx context.Context, filters Filters) *DashboardState {
	f.logger.Debug("refreshing data")

	state, err := f.Fetch(ctx, filters)
	f.metrics.Refresh(err)
	if err != nil {
		f.store.RecordFailure(err, f.clock.Now())
		f.logger.Warn("failed to refresh data", "error", err.Error())
		if f.errorHook != nil {
			f.invokeSafe("error hook", func() { f.errorHook(err) })
		}
		return nil
	}

	f.logger.Info("data refreshed")
	f.notifyView(state.Clone())
	return &state
}

// TestConnection performs a single unfiltered fetch and reports whether it
// succeeded. It is meant for checking endpoint reachability by hand.
func (f *Fetcher) TestConnection(ctx context.Context) bool {
	f.logger.Info("testing connection", "endpoint", f.endpoint.String())

	if _, err := f.Fetch(ctx, Filters{}); err != nil {
		f.logger.Error("connection test failed", "error", err.Error())
		return false
	}
	f.logger.Info("connection test succeeded")
	return true
}

// Close releases idle connections held by the built-in transports.
func (f *Fetcher) Close() {
	f.client.Close()
}

func (f *Fetcher) notifyView(state DashboardState) {
	hook := f.viewHook
	if hook == nil {
		hook = f.fallbackHook
	}
	if hook == nil {
		return
	}
	f.invokeSafe("view hook", func() { hook(state) })
}

// invokeSafe calls fn with panic recovery. The full stack is logged with a
// correlation ID.
func (f *Fetcher) invokeSafe(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error(what+" panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
