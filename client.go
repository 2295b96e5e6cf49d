package webmetrics

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/heroku/webmetrics/metrics"
	"github.com/heroku/webmetrics/metricsregistry"
)

type routeCtxKey struct{}

// WithRoute annotates an outbound request with the route template the
// request targets, eg /apps/{id}. The client interceptor uses it as
// the uri tag so timers aggregate per endpoint instead of per concrete
// path.
func WithRoute(req *http.Request, template string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), routeCtxKey{}, template))
}

// RouteFromContext returns the route template set by WithRoute, or "".
func RouteFromContext(ctx context.Context) string {
	tmpl, _ := ctx.Value(routeCtxKey{}).(string)
	return tmpl
}

// NewRoundTripper wraps next with request timing metrics reported to
// the given provider, tagged by method, uri, target host, status and
// outcome. Status is "0" when no response was produced. A nil next
// means http.DefaultTransport.
//
// When the config disables the feature next is returned unchanged.
func NewRoundTripper(p metrics.Provider, cfg Config, next http.RoundTripper, logger logrus.FieldLogger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if cfg.Disabled() {
		return next
	}

	return &transport{
		next: next,
		reg: metricsregistry.New(p,
			metricsregistry.WithPercentiles(cfg.Web.ClientPercentiles)),
		hosts:  p.NewCardinalityCounter(ClientHostsMetricName),
		logger: ensureLogger(logger),
	}
}

type transport struct {
	next   http.RoundTripper
	reg    metricsregistry.Registry
	hosts  metrics.CardinalityCounter
	logger logrus.FieldLogger
}

// RoundTrip implements http.RoundTripper. The response and error from
// next always pass through unchanged.
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	begin := time.Now()

	resp, err := t.next.RoundTrip(req)

	t.record(req, resp, err, begin)
	return resp, err
}

// record observes the dispatch exactly once, swallowing recording-path
// panics so the caller still sees the original result.
func (t *transport) record(req *http.Request, resp *http.Response, err error, begin time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			t.logger.WithFields(logrus.Fields{
				"at":    "http-client",
				"panic": rec,
			}).Warn("metrics recording failed")
		}
	}()

	host := req.URL.Hostname()
	t.hosts.Insert([]byte(host))

	// The tag set must keep the same shape for every dispatch: vec-backed
	// providers reject a second label-name set under one metric name.
	// When no response was produced the status tag is "0".
	var status int
	var outcome Outcome
	if err != nil {
		outcome = classifyError(err)
	} else {
		status = resp.StatusCode
		outcome = classifyStatus(resp.StatusCode, true)
	}

	t.reg.GetOrRegisterTimer(ClientMetricName,
		TagMethod, req.Method,
		TagURI, clientRouteTag(req),
		TagHost, host,
		TagStatus, statusTag(status),
		TagOutcome, outcome.String(),
	).ObserveSince(begin)

	switch outcome {
	case OutcomeError:
		t.reg.GetOrRegisterCounter("http.client.errors").Add(1)
	case OutcomeCanceled:
		t.reg.GetOrRegisterCounter("http.client.context-canceled").Add(1)
	}
}
