// Package prometheus provides a Provider backed by
// prometheus/client_golang. Collectors are created lazily: a metric's
// label names are only known once the first With call arrives, so the
// backing vec is registered at that point and reused for every later
// label combination.
package prometheus

import (
	"strings"
	"sync"

	"github.com/go-kit/kit/metrics"
	prom "github.com/prometheus/client_golang/prometheus"

	xmetrics "github.com/heroku/webmetrics/metrics"
)

var _ xmetrics.Provider = &Provider{}

// Provider creates prometheus-backed metrics registered on a single
// Registerer.
type Provider struct {
	registerer prom.Registerer
	namespace  string

	mu         sync.Mutex
	counters   map[string]*prom.CounterVec
	gauges     map[string]*prom.GaugeVec
	histograms map[string]*prom.HistogramVec
}

// Option configures a Provider.
type Option func(*Provider)

// WithNamespace sets the prometheus namespace applied to every metric.
func WithNamespace(ns string) Option {
	return func(p *Provider) {
		p.namespace = ns
	}
}

// New returns a Provider registering on r. Passing nil uses the
// default prometheus registerer.
func New(r prom.Registerer, opts ...Option) *Provider {
	if r == nil {
		r = prom.DefaultRegisterer
	}

	p := &Provider{
		registerer: r,
		counters:   make(map[string]*prom.CounterVec),
		gauges:     make(map[string]*prom.GaugeVec),
		histograms: make(map[string]*prom.HistogramVec),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stop implements Provider.
func (p *Provider) Stop() {}

// NewCounter implements Provider.
func (p *Provider) NewCounter(name string) metrics.Counter {
	return &counter{p: p, name: name}
}

// NewGauge implements Provider.
func (p *Provider) NewGauge(name string) metrics.Gauge {
	return &gauge{p: p, name: name}
}

// NewHistogram implements Provider. The bucket hint is ignored;
// prometheus histograms use the default duration buckets.
func (p *Provider) NewHistogram(name string, _ int) metrics.Histogram {
	return &histogram{p: p, name: name}
}

// NewCardinalityCounter implements Provider. The estimate is exposed
// as a gauge tracking the HLL estimate after each insert.
func (p *Provider) NewCardinalityCounter(name string) xmetrics.CardinalityCounter {
	return &cardinalityCounter{
		c: xmetrics.NewHLLCounter(name),
		g: p.NewGauge(name),
	}
}

func (p *Provider) counterFor(name string, lvs []string) prom.Counter {
	names, values := splitPairs(lvs)

	p.mu.Lock()
	defer p.mu.Unlock()

	key := vecKey(name, names)
	vec, ok := p.counters[key]
	if !ok {
		vec = prom.NewCounterVec(prom.CounterOpts{
			Namespace: p.namespace,
			Name:      sanitizeName(name),
		}, names)
		p.registerer.MustRegister(vec)
		p.counters[key] = vec
	}
	return vec.WithLabelValues(values...)
}

func (p *Provider) gaugeFor(name string, lvs []string) prom.Gauge {
	names, values := splitPairs(lvs)

	p.mu.Lock()
	defer p.mu.Unlock()

	key := vecKey(name, names)
	vec, ok := p.gauges[key]
	if !ok {
		vec = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: p.namespace,
			Name:      sanitizeName(name),
		}, names)
		p.registerer.MustRegister(vec)
		p.gauges[key] = vec
	}
	return vec.WithLabelValues(values...)
}

func (p *Provider) histogramFor(name string, lvs []string) prom.Observer {
	names, values := splitPairs(lvs)

	p.mu.Lock()
	defer p.mu.Unlock()

	key := vecKey(name, names)
	vec, ok := p.histograms[key]
	if !ok {
		vec = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: p.namespace,
			Name:      sanitizeName(name),
			Buckets:   prom.DefBuckets,
		}, names)
		p.registerer.MustRegister(vec)
		p.histograms[key] = vec
	}
	return vec.WithLabelValues(values...)
}

// splitPairs separates alternating key/value label pairs. An unpaired
// trailing key gets an empty value rather than being dropped.
func splitPairs(lvs []string) (names, values []string) {
	for i := 0; i < len(lvs); i += 2 {
		names = append(names, sanitizeName(lvs[i]))
		if i+1 < len(lvs) {
			values = append(values, lvs[i+1])
		} else {
			values = append(values, "")
		}
	}
	return names, values
}

func vecKey(name string, labelNames []string) string {
	return name + "." + strings.Join(labelNames, ":")
}

var nameReplacer = strings.NewReplacer(".", "_", "-", "_")

func sanitizeName(name string) string {
	return nameReplacer.Replace(name)
}

type counter struct {
	p    *Provider
	name string
	lvs  []string
}

// With implements metrics.Counter.
func (c *counter) With(labelValues ...string) metrics.Counter {
	return &counter{
		p:    c.p,
		name: c.name,
		lvs:  append(append([]string(nil), c.lvs...), labelValues...),
	}
}

// Add implements metrics.Counter.
func (c *counter) Add(delta float64) {
	c.p.counterFor(c.name, c.lvs).Add(delta)
}

type gauge struct {
	p    *Provider
	name string
	lvs  []string
}

// With implements metrics.Gauge.
func (g *gauge) With(labelValues ...string) metrics.Gauge {
	return &gauge{
		p:    g.p,
		name: g.name,
		lvs:  append(append([]string(nil), g.lvs...), labelValues...),
	}
}

// Set implements metrics.Gauge.
func (g *gauge) Set(v float64) {
	g.p.gaugeFor(g.name, g.lvs).Set(v)
}

// Add implements metrics.Gauge.
func (g *gauge) Add(delta float64) {
	g.p.gaugeFor(g.name, g.lvs).Add(delta)
}

type histogram struct {
	p    *Provider
	name string
	lvs  []string
}

// With implements metrics.Histogram.
func (h *histogram) With(labelValues ...string) metrics.Histogram {
	return &histogram{
		p:    h.p,
		name: h.name,
		lvs:  append(append([]string(nil), h.lvs...), labelValues...),
	}
}

// Observe implements metrics.Histogram.
func (h *histogram) Observe(v float64) {
	h.p.histogramFor(h.name, h.lvs).Observe(v)
}

type cardinalityCounter struct {
	c *xmetrics.HLLCounter
	g metrics.Gauge
}

// With implements CardinalityCounter.
func (c *cardinalityCounter) With(labelValues ...string) xmetrics.CardinalityCounter {
	return &cardinalityCounter{
		c: c.c.With(labelValues...).(*xmetrics.HLLCounter),
		g: c.g.With(labelValues...),
	}
}

// Insert implements CardinalityCounter.
func (c *cardinalityCounter) Insert(b []byte) {
	c.c.Insert(b)
	c.g.Set(float64(c.c.Estimate()))
}
