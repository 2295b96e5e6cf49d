package webmetrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi"
	kitmetrics "github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/heroku/webmetrics/metrics"
	promprovider "github.com/heroku/webmetrics/metrics/provider/prometheus"
	"github.com/heroku/webmetrics/metrics/testmetrics"
)

func TestRoundTripper(t *testing.T) {
	p := testmetrics.NewProvider(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	}))
	defer ts.Close()

	client := &http.Client{Transport: NewRoundTripper(p, enabledConfig(), nil, nil)}

	req, err := http.NewRequest("GET", ts.URL+"/hello/world", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = WithRoute(req, "/hello/{name}")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	u, _ := url.Parse(ts.URL)

	p.CheckObservationCount(ClientMetricName, 1,
		"method", "GET",
		"uri", "/hello/{name}",
		"host", u.Hostname(),
		"status", "200",
		"outcome", "success",
	)
	p.CheckCardinalityCounter(ClientHostsMetricName, 1)
}

func TestRoundTripperPathFallback(t *testing.T) {
	p := testmetrics.NewProvider(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := &http.Client{Transport: NewRoundTripper(p, enabledConfig(), nil, nil)}

	resp, err := client.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	u, _ := url.Parse(ts.URL)

	p.CheckObservationCount(ClientMetricName, 1,
		"method", "GET",
		"uri", "/nope",
		"host", u.Hostname(),
		"status", "404",
		"outcome", "client-error",
	)
}

func TestRoundTripperTransportError(t *testing.T) {
	p := testmetrics.NewProvider(t)

	wantErr := errors.New("connection refused")
	rt := NewRoundTripper(p, enabledConfig(), roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, wantErr
	}), nil)

	req := httptest.NewRequest("GET", "http://backend.local/apps/1", nil)
	req = WithRoute(req, "/apps/{id}")

	_, err := rt.RoundTrip(req)
	if err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}

	p.CheckObservationCount(ClientMetricName, 1,
		"method", "GET",
		"uri", "/apps/{id}",
		"host", "backend.local",
		"status", "0",
		"outcome", "error",
	)
	p.CheckCounter("http.client.errors", 1)
}

func TestRoundTripperCanceled(t *testing.T) {
	p := testmetrics.NewProvider(t)

	rt := NewRoundTripper(p, enabledConfig(), roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, &url.Error{Op: "Get", URL: "http://backend.local/apps/1", Err: context.Canceled}
	}), nil)

	req := httptest.NewRequest("GET", "http://backend.local/apps/1", nil)

	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("wanted an error")
	}

	p.CheckObservationCount(ClientMetricName, 1,
		"method", "GET",
		"uri", "/apps/1",
		"host", "backend.local",
		"status", "0",
		"outcome", "canceled",
	)
	p.CheckCounter("http.client.context-canceled", 1)
}

// Every dispatch must surface under the same label-name set, or
// vec-backed providers reject the second shape and the sample is lost.
func TestRoundTripperTagShapeStableAcrossOutcomes(t *testing.T) {
	reg := prom.NewRegistry()
	p := promprovider.New(reg)

	calls := 0
	rt := NewRoundTripper(p, enabledConfig(), roundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
		}
		return nil, errors.New("connection refused")
	}), nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "http://backend.local/apps/1", nil)
		resp, err := rt.RoundTrip(WithRoute(req, "/apps/{id}"))
		if resp != nil {
			resp.Body.Close()
		}
		if i == 1 && err == nil {
			t.Fatal("wanted a transport error on the second dispatch")
		}
	}

	fams, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var samples uint64
	for _, f := range fams {
		if f.GetName() != "http_client_requests" {
			continue
		}
		for _, m := range f.GetMetric() {
			samples += m.GetHistogram().GetSampleCount()
		}
	}
	if samples != 2 {
		t.Fatalf("gathered %d samples, want one per dispatch", samples)
	}
}

func TestRoundTripperUsesClientPercentiles(t *testing.T) {
	p := testmetrics.NewProvider(t)

	cfg := enabledConfig()
	cfg.Web.ClientPercentiles = PercentileList{0.5, 0.95}
	cfg.Web.ServerPercentiles = PercentileList{0.5}

	rt := NewRoundTripper(p, cfg, roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	}), nil).(*transport)

	req := httptest.NewRequest("GET", "http://backend.local/apps/1", nil)
	resp, err := rt.RoundTrip(WithRoute(req, "/apps/{id}"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	tm := rt.reg.GetOrRegisterTimer(ClientMetricName,
		TagMethod, "GET",
		TagURI, "/apps/{id}",
		TagHost, "backend.local",
		TagStatus, "200",
		TagOutcome, "success",
	)
	if got, want := len(tm.Snapshot()), len(cfg.Web.ClientPercentiles); got != want {
		t.Fatalf("snapshot has %d percentiles, want %d", got, want)
	}
}

func TestRoundTripperDisabled(t *testing.T) {
	p := testmetrics.NewProvider(t)

	cfg := enabledConfig()
	cfg.Enabled = false

	next := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("unused")
	})

	rt := NewRoundTripper(p, cfg, next, nil)
	if _, ok := rt.(roundTripperFunc); !ok {
		t.Fatal("disabled config should return next unchanged")
	}
}

func TestRoundTripperRecordingFailureDoesNotAlterResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	}))
	defer ts.Close()

	client := &http.Client{Transport: NewRoundTripper(&panicHistogramProvider{}, enabledConfig(), nil, nil)}

	resp, err := client.Get(ts.URL + "/ok")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestServerAndClientRecordMatchingURI(t *testing.T) {
	p := testmetrics.NewProvider(t)

	r := chi.NewRouter()
	r.Use(NewServer(p, enabledConfig(), nil))
	r.Get("/apps/{id}", func(w http.ResponseWriter, r *http.Request) {
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	client := &http.Client{Transport: NewRoundTripper(p, enabledConfig(), nil, nil)}

	req, err := http.NewRequest("GET", ts.URL+"/apps/42", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = WithRoute(req, "/apps/{id}")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	u, _ := url.Parse(ts.URL)

	p.CheckObservationCount(ServerMetricName, 1,
		"method", "GET",
		"uri", "/apps/{id}",
		"status", "200",
		"outcome", "success",
	)
	p.CheckObservationCount(ClientMetricName, 1,
		"method", "GET",
		"uri", "/apps/{id}",
		"host", u.Hostname(),
		"status", "200",
		"outcome", "success",
	)
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// panicHistogramProvider works at construction time but fails when a
// dispatch tries to record, standing in for a backend that goes away.
type panicHistogramProvider struct{}

func (panicHistogramProvider) NewCounter(string) kitmetrics.Counter { return discard.NewCounter() }
func (panicHistogramProvider) NewGauge(string) kitmetrics.Gauge     { return discard.NewGauge() }
func (panicHistogramProvider) NewHistogram(string, int) kitmetrics.Histogram {
	panic("registry unavailable")
}
func (panicHistogramProvider) NewCardinalityCounter(name string) metrics.CardinalityCounter {
	return metrics.NewHLLCounter(name)
}
func (panicHistogramProvider) Stop() {}
