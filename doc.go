// Package dashfeed keeps a transcript dashboard supplied with data from a
// remote HTTP endpoint.
//
// A [Fetcher] builds the request URL from the endpoint, the optional
// [Filters] and a cache-busting nonce, then tries its transports in order
// until one yields a payload that decodes into a [DashboardState]:
//
//   - direct: a GET asking for application/json
//   - jsonp: a GET with a unique callback parameter, answered by a script
//     calling that callback
//   - proxy: the same request routed through a CORS relay
//
// The winning payload replaces the fetcher's state wholesale. If every
// transport fails, [Fetcher.Fetch] returns a *[FetchFailure] matching
// [ErrTransportExhausted] and the state is left as it was.
//
// # Quick Start
//
//	d, _ := dashfeed.New("https://script.google.com/macros/s/XXX/exec",
//	    dashfeed.WithViewHook(func(s dashfeed.DashboardState) {
//	        slog.Info("new data", "conversations", len(s.Conversations))
//	    }),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	d.Start(ctx) // blocks until context is cancelled
//
// # Refresh
//
// [Fetcher.Refresh] wraps Fetch for the refresh cycle: it calls the view
// hook on success and swallows errors, returning nil instead. Callers that
// need to observe failures register [WithErrorHook].
//
// # Architecture
//
//   - internal/transport: the request strategies and the shared HTTP client
//   - internal/store: the owned state with pub/sub
//   - internal/scheduler: immediate run plus fixed-interval ticks
//   - internal/server: JSON, SSE and metrics endpoints for the view
//   - internal/metrics: Prometheus collectors
package dashfeed
