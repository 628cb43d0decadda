package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// Strategy names, used in logs, metrics and errors.
const (
	NameDirect = "direct"
	NameJSONP  = "jsonp"
	NameProxy  = "proxy"
)

// Strategy fetches the body for a fully built request URL.
//
// Implementations must not modify target. A nil error means the returned
// bytes are the JSON payload as delivered by the remote side; decoding into
// a concrete shape is left to the caller.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, target *url.URL) ([]byte, error)
}

// StrategyFunc adapts a plain function to [Strategy].
type StrategyFunc struct {
	Label string
	Fn    func(ctx context.Context, target *url.URL) ([]byte, error)
}

// Name returns the strategy label.
func (s StrategyFunc) Name() string { return s.Label }

// Fetch calls the wrapped function.
func (s StrategyFunc) Fetch(ctx context.Context, target *url.URL) ([]byte, error) {
	return s.Fn(ctx, target)
}

// Settings are the request settings shared by the built-in strategies.
type Settings struct {
	// Headers are sent with every request. Accept is set per strategy and
	// overrides any value given here.
	Headers map[string]string

	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration

	// Logger receives one debug record per request. Nil disables it.
	Logger *slog.Logger
}

func (s Settings) headersWith(accept string) map[string]string {
	h := make(map[string]string, len(s.Headers)+1)
	for k, v := range s.Headers {
		h[k] = v
	}
	h["Accept"] = accept
	return h
}

// ErrUnknownCallback is returned when a JSONP body invokes a callback that is
// not registered.
var ErrUnknownCallback = errors.New("unknown jsonp callback")

// NetworkError reports a connection failure or a non-2xx response.
type NetworkError struct {
	Transport  string
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: request to %s failed: %v", e.Transport, e.URL, e.Err)
	}
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d", e.StatusCode)
	}
	return fmt.Sprintf("%s: network response was not ok: %s", e.Transport, status)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a body that could not be interpreted.
type ParseError struct {
	Transport string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse response: %v", e.Transport, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (s Settings) logResponse(name string, resp Response) {
	if s.Logger == nil {
		return
	}
	s.Logger.Debug("transport response",
		"transport", name,
		"status", resp.StatusCode,
		"latency_ms", resp.Latency.Milliseconds(),
		"bytes", len(resp.Body),
	)
}

// checkResponse converts a failed or non-2xx [Response] into a *NetworkError.
func checkResponse(name, rawURL string, resp Response) error {
	if resp.Error != nil {
		return &NetworkError{Transport: name, URL: rawURL, StatusCode: resp.StatusCode, Err: resp.Error}
	}
	if !resp.OK() {
		return &NetworkError{Transport: name, URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return nil
}
