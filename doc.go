// Package webmetrics instruments HTTP request dispatch with timing
// metrics, on both sides of the wire.
//
// The server middleware and the client RoundTripper each record one
// timer sample per dispatch:
//
//	http.server.requests - tagged with method, uri, status, outcome
//	http.client.requests - tagged with method, uri, host, status, outcome
//
// Every dispatch carries the full tag set for its metric, so the label
// shape seen by vec-backed providers never varies. When no numeric
// status exists (a transport error, a canceled request, an aborted
// handler that wrote nothing) the status tag is "0" and the outcome
// tag carries the failure class.
//
// The uri tag carries the matched route template (eg /apps/{id}) when
// the chi router resolved one, the NO_ROUTE_MATCH sentinel when it ran
// and matched nothing, and the raw request path when no router was
// involved. Clients have no router, so they annotate requests with
// WithRoute and fall back to the request path.
//
// Recording is best effort: a failing metrics backend never changes
// the response or error the caller sees. Both interceptors are safe
// for concurrent dispatch.
package webmetrics
