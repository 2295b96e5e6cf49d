// Package testmetrics is for testing provider metrics
// with a test Provider that adheres to the Provider interface
package testmetrics

import (
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-kit/kit/metrics"

	xmetrics "github.com/heroku/webmetrics/metrics"
)

// Provider collects registered metrics for testing.
type Provider struct {
	t *testing.T

	sync.Mutex
	counters     map[string]*Counter
	gauges       map[string]*Gauge
	histograms   map[string]*Histogram
	cardCounters map[string]*CardinalityCounter
	stopped      bool
}

// NewProvider constructs a test provider which can later be checked.
func NewProvider(t *testing.T) *Provider {
	return &Provider{
		t:            t,
		counters:     make(map[string]*Counter),
		histograms:   make(map[string]*Histogram),
		gauges:       make(map[string]*Gauge),
		cardCounters: make(map[string]*CardinalityCounter),
	}
}

// Stop makes it Provider compliant.
func (p *Provider) Stop() {
	p.stopped = true
}

// NewCounter implements the Provider interface.
func (p *Provider) NewCounter(name string) metrics.Counter {
	return p.newCounter(name)
}

func (p *Provider) newCounter(name string, labelValues ...string) metrics.Counter {
	p.Lock()
	defer p.Unlock()

	k := p.keyFor(name, labelValues...)
	if _, ok := p.counters[k]; !ok {
		p.counters[k] = &Counter{name: name, p: p, labelValues: labelValues}
	}
	return p.counters[k]
}

// NewGauge implements the Provider interface.
func (p *Provider) NewGauge(name string) metrics.Gauge {
	return p.newGauge(name)
}

func (p *Provider) newGauge(name string, labelValues ...string) metrics.Gauge {
	p.Lock()
	defer p.Unlock()

	k := p.keyFor(name, labelValues...)
	if _, ok := p.gauges[k]; !ok {
		p.gauges[k] = &Gauge{name: name, p: p, labelValues: labelValues}
	}
	return p.gauges[k]
}

// NewHistogram implements the Provider interface.
func (p *Provider) NewHistogram(name string, _ int) metrics.Histogram {
	return p.newHistogram(name)
}

func (p *Provider) newHistogram(name string, labelValues ...string) metrics.Histogram {
	p.Lock()
	defer p.Unlock()

	k := p.keyFor(name, labelValues...)
	if _, ok := p.histograms[k]; !ok {
		p.histograms[k] = &Histogram{name: name, p: p, labelValues: labelValues}
	}
	return p.histograms[k]
}

// NewCardinalityCounter implements the Provider interface.
func (p *Provider) NewCardinalityCounter(name string) xmetrics.CardinalityCounter {
	return p.newCardinalityCounter(name)
}

func (p *Provider) newCardinalityCounter(name string, labelValues ...string) xmetrics.CardinalityCounter {
	p.Lock()
	defer p.Unlock()

	k := p.keyFor(name, labelValues...)
	if _, ok := p.cardCounters[k]; !ok {
		p.cardCounters[k] = &CardinalityCounter{
			name:        name,
			p:           p,
			labelValues: labelValues,
			counter:     xmetrics.NewHLLCounter(name),
		}
	}
	return p.cardCounters[k]
}

// CheckCounter checks that there is a registered counter
// with the name and value provided.
func (p *Provider) CheckCounter(name string, v float64, labelValues ...string) {
	p.t.Helper()

	p.Lock()
	defer p.Unlock()

	k := p.keyFor(name, labelValues...)
	c, ok := p.counters[k]
	if !ok {
		p.t.Fatalf("no counter named %s out of available counters: \n%s", k, p.counterNames())
	}

	if c.getValue() != v {
		p.t.Fatalf("%v = %v, want %v", name, c.value, v)
	}

	if len(labelValues) > 0 && !reflect.DeepEqual(labelValues, c.labelValues) {
		p.t.Fatalf("want counter label values: %#v, got %#v", labelValues, c.labelValues)
	}
}

// CheckNoCounter checks that there is no registered counter with the name
// provided.
func (p *Provider) CheckNoCounter(name string, labelValues ...string) {
	p.t.Helper()

	p.Lock()
	defer p.Unlock()

	k := p.keyFor(name, labelValues...)
	if _, ok := p.counters[k]; ok {
		p.t.Fatalf("a counter named %s was found", k)
	}
}

// CheckObservations checks that there is a histogram
// with the name and observations provided.
func (p *Provider) CheckObservations(name string, obs []float64, labelValues ...string) {
	p.t.Helper()

	observations := p.getObservations(name, labelValues...)
	if !reflect.DeepEqual(observations, obs) {
		p.t.Fatalf("%v = %v, want %v", p.keyFor(name, labelValues...), observations, obs)
	}
}

// CheckObservationsMinMax checks that there is a histogram
// with the name and that the values all fall within the min/max range.
func (p *Provider) CheckObservationsMinMax(name string, min, max float64, labelValues ...string) {
	p.t.Helper()

	for _, o := range p.getObservations(name, labelValues...) {
		if o < min || o > max {
			p.t.Fatalf("got %f want %f..%f ", o, min, max)
		}
	}
}

// CheckObservationCount checks that there is a histogram
// with the name and number of observations provided.
func (p *Provider) CheckObservationCount(name string, n int, labelValues ...string) {
	p.t.Helper()

	observations := p.getObservations(name, labelValues...)

	if len(observations) != n {
		p.t.Fatalf("len(%v) = %v, want %v", p.keyFor(name, labelValues...), len(observations), n)
	}
}

// CheckNoHistogram checks that there is no registered histogram with the
// name and label values provided.
func (p *Provider) CheckNoHistogram(name string, labelValues ...string) {
	p.t.Helper()

	p.Lock()
	defer p.Unlock()

	k := p.keyFor(name, labelValues...)
	if _, ok := p.histograms[k]; ok {
		p.t.Fatalf("a histogram named %s was found", k)
	}
}

// CheckNoHistogramPrefix checks that no registered histogram has a key
// starting with the prefix provided, regardless of its label values.
func (p *Provider) CheckNoHistogramPrefix(prefix string) {
	p.t.Helper()

	p.Lock()
	defer p.Unlock()

	for k := range p.histograms {
		if strings.HasPrefix(k, prefix) {
			p.t.Fatalf("a histogram named %s was found", k)
		}
	}
}

func (p *Provider) getObservations(name string, labelValues ...string) []float64 {
	p.t.Helper()

	p.Lock()
	defer p.Unlock()

	k := p.keyFor(name, labelValues...)
	h, ok := p.histograms[k]
	if !ok {
		keys := make([]string, 0, len(p.histograms))
		for k := range p.histograms {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		available := strings.Join(keys, "\n")
		p.t.Fatalf("no histogram named %s out of available histograms: \n%s", k, available)
	}

	return h.getObservations()
}

// CheckGauge checks that there is a registered gauge
// with the name and value provided.
func (p *Provider) CheckGauge(name string, v float64, labelValues ...string) {
	p.t.Helper()

	p.Lock()
	defer p.Unlock()

	k := p.keyFor(name, labelValues...)
	g, ok := p.gauges[k]
	if !ok {
		keys := make([]string, 0, len(p.gauges))
		for k := range p.gauges {
			keys = append(keys, k)
		}
		available := strings.Join(keys, "\n")
		p.t.Fatalf("no gauge named %s out of available gauges: \n%s", k, available)
	}

	if actualV := g.getValue(); actualV != v {
		p.t.Fatalf("%v = %v, want %v", k, actualV, v)
	}
}

// CheckStopped verifies that a provider has been Stop'd.
func (p *Provider) CheckStopped() {
	p.t.Helper()

	if !p.stopped {
		p.t.Fatal("provider is not stopped")
	}
}

// CheckCardinalityCounter checks that there is a registered cardinality
// counter with the name and estimate provided.
func (p *Provider) CheckCardinalityCounter(name string, estimate uint64, labelValues ...string) {
	p.t.Helper()

	p.Lock()
	defer p.Unlock()

	k := p.keyFor(name, labelValues...)
	cc, ok := p.cardCounters[k]
	if !ok {
		keys := make([]string, 0, len(p.cardCounters))
		for k := range p.cardCounters {
			keys = append(keys, k)
		}
		available := strings.Join(keys, "\n")
		p.t.Fatalf("no cardinality counter named %s out of available cardinality counters: \n%s", k, available)
	}

	if actualEstimate := cc.Estimate(); actualEstimate != estimate {
		p.t.Fatalf("%v = %v, want %v", k, actualEstimate, estimate)
	}
}

func (p *Provider) counterNames() string {
	keys := make([]string, 0, len(p.counters))
	for k := range p.counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, "\n")
}

func (p *Provider) keyFor(name string, labelValues ...string) string {
	if len(labelValues) == 0 {
		return name
	}
	return name + "." + strings.Join(labelValues, ":")
}
