// Package transport implements the request strategies used to reach the
// dashboard data endpoint.
//
// A [Strategy] turns a fully built request URL into a JSON body. Three
// strategies are provided and are normally tried in this order:
//
//   - [Direct]: plain GET with an Accept: application/json header
//   - [JSONP]: GET with a uniquely named callback parameter; the body must
//     be a call of that callback
//   - [Proxy]: GET routed through a CORS relay that returns the raw body
//
// Strategies share a [Client], which wraps a pooled HTTP transport with a
// cookie jar and a response size limit.
//
// Users of the dashfeed library should not need to interact with this
// package directly. The chain is assembled by the root package.
package transport
