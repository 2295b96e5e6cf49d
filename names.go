package webmetrics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
)

// Metric names recorded by the two interceptors.
const (
	ServerMetricName = "http.server.requests"
	ClientMetricName = "http.client.requests"

	// ClientHostsMetricName estimates the number of distinct hosts
	// the instrumented client has dispatched to.
	ClientHostsMetricName = "http.client.hosts"
)

// Tag keys used on request timers.
const (
	TagMethod  = "method"
	TagURI     = "uri"
	TagStatus  = "status"
	TagHost    = "host"
	TagOutcome = "outcome"
)

// NoRouteMatch is the uri tag value recorded when the router ran but
// matched no route for the request.
const NoRouteMatch = "NO_ROUTE_MATCH"

// serverRouteTag resolves the uri tag for an inbound request. It must
// be called after routing has completed, so the chi route context (when
// present) reflects the final match.
func serverRouteTag(r *http.Request) string {
	ctx := r.Context()
	if ctx.Value(chi.RouteCtxKey) == nil {
		// No router in the stack; the raw path is the only identity
		// the request has.
		return r.URL.Path
	}

	if pattern := chi.RouteContext(ctx).RoutePattern(); pattern != "" {
		return pattern
	}
	return NoRouteMatch
}

// clientRouteTag resolves the uri tag for an outbound request: the
// WithRoute template when the caller supplied one, else the path.
func clientRouteTag(r *http.Request) string {
	if tmpl := RouteFromContext(r.Context()); tmpl != "" {
		return tmpl
	}
	return r.URL.Path
}

func statusTag(status int) string {
	return strconv.Itoa(status)
}
