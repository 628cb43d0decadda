package dashfeed

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jpalmerr/dashfeed/internal/transport"
)

// Transport names accepted by [WithTransports].
const (
	TransportDirect = transport.NameDirect
	TransportJSONP  = transport.NameJSONP
	TransportProxy  = transport.NameProxy
)

// DefaultProxyURL is the CORS relay used by the proxy transport unless
// [WithProxyURL] says otherwise.
const DefaultProxyURL = transport.DefaultProxyPrefix

// ViewHook receives the new state after every successful refresh.
type ViewHook func(DashboardState)

// dfConfig holds mutable state during Fetcher and Dashboard construction.
type dfConfig struct {
	refreshInterval time.Duration
	port            int
	timeout         time.Duration
	headers         map[string]string
	proxyURL        string
	transports      []string
	customChain     []Transport
	httpClient      *http.Client
	filters         Filters
	logger          *slog.Logger
	clock           clockwork.Clock
	viewHook        ViewHook
	fallbackHook    ViewHook
	errorHook       func(error)
}

func defaultConfig() *dfConfig {
	return &dfConfig{
		refreshInterval: defaultRefreshInterval,
		port:            defaultPort,
		headers:         map[string]string{},
		proxyURL:        DefaultProxyURL,
		transports:      []string{TransportDirect, TransportJSONP, TransportProxy},
	}
}

// Option configures a [Fetcher] or [Dashboard] during construction.
//
// Options return an error if validation fails. Options that only make
// sense for a Dashboard (interval, port) are accepted and ignored by
// [NewFetcher].
type Option func(*dfConfig) error

// WithRefreshInterval sets how often the dashboard refreshes.
// Defaults to 60 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRefreshInterval(d time.Duration) Option {
	return func(cfg *dfConfig) error {
		if d <= 0 {
			return errors.New("refresh interval must be positive")
		}
		cfg.refreshInterval = d
		return nil
	}
}

// WithPort sets the port of the view server. Port 0 disables the server.
// Defaults to 8080.
//
// Returns an error if the port is outside 0-65535.
func WithPort(port int) Option {
	return func(cfg *dfConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port must be between 0 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTimeout bounds every single transport request. Zero, the default,
// means requests wait until the context given to Fetch is done.
//
// Returns an error if the duration is negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *dfConfig) error {
		if d < 0 {
			return errors.New("timeout cannot be negative")
		}
		cfg.timeout = d
		return nil
	}
}

// WithHeaders adds HTTP headers sent by every transport, as key-value pairs.
//
// Example:
//
//	dashfeed.WithHeaders("Authorization", "Bearer token")
//
// Returns an error if an odd number of arguments is given.
func WithHeaders(kv ...string) Option {
	return func(cfg *dfConfig) error {
		if len(kv)%2 != 0 {
			return errors.New("headers must be key-value pairs")
		}
		for i := 0; i < len(kv); i += 2 {
			cfg.headers[kv[i]] = kv[i+1]
		}
		return nil
	}
}

// WithProxyURL sets the relay prefix used by the proxy transport. The escaped
// request URL is appended to it as is.
//
// Returns an error if the prefix is not an http or https URL.
func WithProxyURL(prefix string) Option {
	return func(cfg *dfConfig) error {
		u, err := url.Parse(prefix)
		if err != nil {
			return fmt.Errorf("invalid proxy url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("proxy url scheme must be http or https, got %q", u.Scheme)
		}
		cfg.proxyURL = prefix
		return nil
	}
}

// WithTransports selects the built-in transports and their order.
// Defaults to direct, jsonp, proxy.
//
// Returns an error on an empty list, an unknown name or a duplicate.
func WithTransports(names ...string) Option {
	return func(cfg *dfConfig) error {
		if len(names) == 0 {
			return errors.New("at least one transport is required")
		}
		seen := make(map[string]bool, len(names))
		for _, n := range names {
			switch n {
			case TransportDirect, TransportJSONP, TransportProxy:
			default:
				return fmt.Errorf("unknown transport %q", n)
			}
			if seen[n] {
				return fmt.Errorf("duplicate transport %q", n)
			}
			seen[n] = true
		}
		cfg.transports = append([]string(nil), names...)
		return nil
	}
}

// WithTransportChain replaces the built-in transports with ts, tried in
// order. Useful for custom relays and for tests.
//
// Returns an error if ts is empty or contains nil.
func WithTransportChain(ts ...Transport) Option {
	return func(cfg *dfConfig) error {
		if len(ts) == 0 {
			return errors.New("at least one transport is required")
		}
		for i, t := range ts {
			if t == nil {
				return fmt.Errorf("transport %d is nil", i)
			}
		}
		cfg.customChain = append([]Transport(nil), ts...)
		return nil
	}
}

// WithHTTPClient sets the HTTP client used by the built-in transports.
// The default client pools connections and keeps cookies.
func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *dfConfig) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		cfg.httpClient = hc
		return nil
	}
}

// WithFilters sets the filters used by scheduled refreshes.
func WithFilters(f Filters) Option {
	return func(cfg *dfConfig) error {
		cfg.filters = f
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *dfConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithClock replaces the wall clock used for cache-busting nonces and the
// refresh schedule.
func WithClock(c clockwork.Clock) Option {
	return func(cfg *dfConfig) error {
		if c == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = c
		return nil
	}
}

// WithViewHook registers the primary view hook, called after every
// successful refresh.
//
// Hooks run synchronously on the refreshing goroutine and must not block.
// Panics are recovered and logged. A nil hook is ignored.
func WithViewHook(h ViewHook) Option {
	return func(cfg *dfConfig) error {
		if h != nil {
			cfg.viewHook = h
		}
		return nil
	}
}

// WithFallbackViewHook registers the hook called when no primary hook is
// registered. A nil hook is ignored.
func WithFallbackViewHook(h ViewHook) Option {
	return func(cfg *dfConfig) error {
		if h != nil {
			cfg.fallbackHook = h
		}
		return nil
	}
}

// WithErrorHook registers a function called with the error of every failed
// refresh. [Fetcher.Refresh] itself never returns the error. A nil hook is
// ignored.
func WithErrorHook(h func(error)) Option {
	return func(cfg *dfConfig) error {
		if h != nil {
			cfg.errorHook = h
		}
		return nil
	}
}
