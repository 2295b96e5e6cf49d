package webmetrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/sirupsen/logrus"

	"github.com/heroku/webmetrics/metrics"
	"github.com/heroku/webmetrics/metricsregistry"
)

// NewServer returns an HTTP middleware which times every request
// handed to next and reports one sample per dispatch to the given
// provider, tagged by method, matched route, status and outcome.
//
// When the config disables the feature the returned middleware is the
// identity function: no registry is built and no metric is ever
// created.
func NewServer(p metrics.Provider, cfg Config, logger logrus.FieldLogger) func(http.Handler) http.Handler {
	if cfg.Disabled() {
		return func(next http.Handler) http.Handler { return next }
	}
	return newServer(p, cfg, logger).middleware
}

func newServer(p metrics.Provider, cfg Config, logger logrus.FieldLogger) *server {
	return &server{
		reg: metricsregistry.New(p,
			metricsregistry.WithPercentiles(cfg.Web.ServerPercentiles)),
		logger: ensureLogger(logger),
	}
}

func (s *server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.incr("http.server.all.requests")

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		begin := time.Now()

		defer func() {
			rec := recover()
			if rec == http.ErrAbortHandler {
				// Deliberate abort; record it as canceled and let
				// net/http handle the sentinel. Whatever status made
				// it out is kept; "0" means none was written.
				s.record(r, ww.Status(), OutcomeCanceled, begin)
				panic(rec)
			}

			if rec != nil {
				s.logger.WithFields(logrus.Fields{
					"at":    "http-server",
					"panic": rec,
				}).Error("handler panicked")

				if ww.Status() == 0 {
					ww.WriteHeader(http.StatusInternalServerError)
				}
				s.record(r, http.StatusInternalServerError, OutcomeError, begin)
				return
			}

			st := ww.Status()
			if st == 0 {
				// Assume no Write or WriteHeader means OK.
				st = http.StatusOK
			}

			outcome := classifyStatus(st, routeMatched(r))
			if r.Context().Err() != nil {
				outcome = OutcomeCanceled
			}
			s.record(r, st, outcome, begin)
		}()

		next.ServeHTTP(ww, r)
	})
}

type server struct {
	reg    metricsregistry.Registry
	logger logrus.FieldLogger
}

// record observes the dispatch exactly once. It is best effort: a
// panicking registry or provider is logged and swallowed so the
// response the caller saw is never altered.
func (s *server) record(r *http.Request, status int, outcome Outcome, begin time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.WithFields(logrus.Fields{
				"at":    "http-server",
				"panic": rec,
			}).Warn("metrics recording failed")
		}
	}()

	tags := []string{
		TagMethod, r.Method,
		TagURI, serverRouteTag(r),
		TagStatus, statusTag(status),
		TagOutcome, outcome.String(),
	}
	s.reg.GetOrRegisterTimer(ServerMetricName, tags...).ObserveSince(begin)

	switch outcome {
	case OutcomeError:
		s.reg.GetOrRegisterCounter("http.server.errors").Add(1)
	case OutcomeCanceled:
		s.reg.GetOrRegisterCounter("http.server.context-canceled").Add(1)
	}
}

// incr bumps a counter, swallowing registry failures like record does.
func (s *server) incr(name string) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.WithFields(logrus.Fields{
				"at":    "http-server",
				"panic": rec,
			}).Warn("metrics recording failed")
		}
	}()

	s.reg.GetOrRegisterCounter(name).Add(1)
}

// routeMatched reports whether routing resolved a route for r. A
// missing chi context counts as matched: without a router there is no
// route to miss.
func routeMatched(r *http.Request) bool {
	ctx := r.Context()
	if ctx.Value(chi.RouteCtxKey) == nil {
		return true
	}
	return chi.RouteContext(ctx).RoutePattern() != ""
}
