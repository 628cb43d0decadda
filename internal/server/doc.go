// Package server provides the HTTP API through which a view reads the
// dashboard state.
//
// This package is internal to dashfeed and handles all HTTP concerns:
//
//   - GET /api/state: the current dashboard state as JSON
//   - GET /api/status: outcome of the latest refresh attempt
//   - GET /api/sse: Server-Sent Events, one event per state replacement
//   - GET /metrics: Prometheus metrics, when a handler is supplied
//   - GET /healthz: liveness
//
// Cross-origin requests are allowed so a page served from elsewhere can
// consume the API. The server shuts down gracefully on context
// cancellation, with a 5-second timeout for in-flight requests.
package server
