package testmetrics

import (
	"sort"
	"sync"

	"github.com/go-kit/kit/metrics"

	xmetrics "github.com/heroku/webmetrics/metrics"
)

// Counter accumulates a value based on Add calls.
type Counter struct {
	name        string
	p           *Provider
	labelValues []string
	value       float64
	sync.RWMutex
}

// Add implements the metrics.Counter interface.
func (c *Counter) Add(delta float64) {
	c.Lock()
	defer c.Unlock()
	c.value += delta
}

// With implements the metrics.Counter interface.
func (c *Counter) With(labelValues ...string) metrics.Counter {
	lvs := append(append([]string(nil), c.labelValues...), labelValues...)
	return c.p.newCounter(c.name, lvs...)
}

func (c *Counter) getValue() float64 {
	c.RLock()
	defer c.RUnlock()
	return c.value
}

// Gauge stores a value based on Add/Set calls.
type Gauge struct {
	name        string
	p           *Provider
	labelValues []string
	value       float64
	sync.RWMutex
}

// Add implements the metrics.Gauge interface.
func (g *Gauge) Add(delta float64) {
	g.Lock()
	defer g.Unlock()
	g.value += delta
}

// Set implements the metrics.Gauge interface.
func (g *Gauge) Set(v float64) {
	g.Lock()
	defer g.Unlock()
	g.value = v
}

// With implements the metrics.Gauge interface.
func (g *Gauge) With(labelValues ...string) metrics.Gauge {
	lvs := append(append([]string(nil), g.labelValues...), labelValues...)
	return g.p.newGauge(g.name, lvs...)
}

func (g *Gauge) getValue() float64 {
	g.RLock()
	defer g.RUnlock()
	return g.value
}

// Histogram collects observations so they can be checked by tests. It
// computes quantiles exactly from the retained observations, so timer
// snapshots are also testable against it.
type Histogram struct {
	name         string
	p            *Provider
	labelValues  []string
	observations []float64
	sync.RWMutex
}

func (h *Histogram) getObservations() []float64 {
	h.RLock()
	defer h.RUnlock()

	o := h.observations
	return o
}

// Observe implements the metrics.Histogram interface.
func (h *Histogram) Observe(v float64) {
	h.Lock()
	defer h.Unlock()
	h.observations = append(h.observations, v)
}

// With implements the metrics.Histogram interface.
func (h *Histogram) With(labelValues ...string) metrics.Histogram {
	lvs := append(append([]string(nil), h.labelValues...), labelValues...)
	return h.p.newHistogram(h.name, lvs...)
}

// Quantile returns the exact q-quantile of the recorded observations,
// or 0 when nothing has been observed.
func (h *Histogram) Quantile(q float64) float64 {
	h.RLock()
	defer h.RUnlock()

	if len(h.observations) == 0 {
		return 0
	}

	sorted := append([]float64(nil), h.observations...)
	sort.Float64s(sorted)

	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}

// CardinalityCounter wraps an HLLCounter so estimates can be checked
// by tests.
type CardinalityCounter struct {
	name        string
	p           *Provider
	labelValues []string
	counter     *xmetrics.HLLCounter
}

// With implements the xmetrics.CardinalityCounter interface.
func (c *CardinalityCounter) With(labelValues ...string) xmetrics.CardinalityCounter {
	lvs := append(append([]string(nil), c.labelValues...), labelValues...)
	return c.p.newCardinalityCounter(c.name, lvs...)
}

// Insert implements the xmetrics.CardinalityCounter interface.
func (c *CardinalityCounter) Insert(b []byte) {
	c.counter.Insert(b)
}

// Estimate returns the estimated cardinality of the inserted items.
func (c *CardinalityCounter) Estimate() uint64 {
	return c.counter.Estimate()
}
