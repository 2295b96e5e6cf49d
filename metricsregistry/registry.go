// Package metricsregistry provides utilities for working with dynamically created metrics.
package metricsregistry

import (
	"sort"
	"strings"
	"sync"

	kitmetrics "github.com/go-kit/kit/metrics"

	"github.com/heroku/webmetrics/metrics"
)

// defaultBuckets is the bucket hint passed to providers when creating
// timer histograms.
const defaultBuckets = 50

// A Registry holds references to a set of metrics by name. It's guaranteed
// to keep returning the same metric given the same name and type. Timers
// are additionally keyed by their tag set, independent of tag order. All
// implementations are also required to be thread safe.
type Registry interface {
	GetOrRegisterCounter(name string) kitmetrics.Counter
	GetOrRegisterGauge(name string) kitmetrics.Gauge
	GetOrRegisterHistogram(name string, buckets int) kitmetrics.Histogram
	GetOrRegisterTimer(name string, tags ...string) *metrics.Timer
}

// simple compile time checks for interface compliance.
var (
	_ Registry = &basicRegistry{}
	_ Registry = &prefixedRegistry{}
)

// Option configures a Registry created by New.
type Option func(*basicRegistry)

// WithPercentiles sets the percentiles configured on every timer the
// registry creates. Each registry carries its own setting, so two
// registries over the same provider can publish different percentiles.
func WithPercentiles(percentiles []float64) Option {
	return func(r *basicRegistry) {
		r.percentiles = append([]float64(nil), percentiles...)
	}
}

// basicRegistry is the base implementation of a Registry.
type basicRegistry struct {
	sync.Mutex
	p           metrics.Provider
	percentiles []float64
	counters    map[string]kitmetrics.Counter
	gauges      map[string]kitmetrics.Gauge
	histograms  map[string]kitmetrics.Histogram
	timers      map[string]*metrics.Timer
}

// New creates a Registry given a metrics.Provider.
func New(p metrics.Provider, opts ...Option) Registry {
	r := &basicRegistry{
		p:          p,
		counters:   make(map[string]kitmetrics.Counter),
		gauges:     make(map[string]kitmetrics.Gauge),
		histograms: make(map[string]kitmetrics.Histogram),
		timers:     make(map[string]*metrics.Timer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrRegisterCounter creates or finds the Counter given a name.
func (r *basicRegistry) GetOrRegisterCounter(name string) kitmetrics.Counter {
	r.Lock()
	defer r.Unlock()

	if r.counters[name] == nil {
		r.counters[name] = r.p.NewCounter(name)
	}
	return r.counters[name]
}

// GetOrRegisterGauge creates or finds the Gauge given a name.
func (r *basicRegistry) GetOrRegisterGauge(name string) kitmetrics.Gauge {
	r.Lock()
	defer r.Unlock()

	if r.gauges[name] == nil {
		r.gauges[name] = r.p.NewGauge(name)
	}
	return r.gauges[name]
}

// GetOrRegisterHistogram creates or finds the Histogram given a name.
func (r *basicRegistry) GetOrRegisterHistogram(name string, buckets int) kitmetrics.Histogram {
	r.Lock()
	defer r.Unlock()

	if r.histograms[name] == nil {
		r.histograms[name] = r.p.NewHistogram(name, buckets)
	}
	return r.histograms[name]
}

// GetOrRegisterTimer creates or finds the Timer for the given name and
// tag set. Tags are alternating key/value pairs. Two calls with the
// same pairs in a different order resolve to the same Timer.
func (r *basicRegistry) GetOrRegisterTimer(name string, tags ...string) *metrics.Timer {
	key := timerKey(name, tags)

	r.Lock()
	defer r.Unlock()

	if r.timers[key] == nil {
		h := r.p.NewHistogram(name, defaultBuckets)
		if len(tags) > 0 {
			h = h.With(tags...)
		}
		r.timers[key] = metrics.NewTimer(h, r.percentiles)
	}
	return r.timers[key]
}

// timerKey canonicalizes a (name, tags) pair by sorting the tag pairs
// on key, so tag order never splits a timer in two. An unpaired
// trailing tag is kept as-is rather than dropped.
func timerKey(name string, tags []string) string {
	if len(tags) == 0 {
		return name
	}

	pairs := make([]string, 0, (len(tags)+1)/2)
	for i := 0; i < len(tags); i += 2 {
		if i+1 < len(tags) {
			pairs = append(pairs, tags[i]+":"+tags[i+1])
		} else {
			pairs = append(pairs, tags[i])
		}
	}
	sort.Strings(pairs)

	return name + "." + strings.Join(pairs, ":")
}

// prefixedRegistry contains a reference to the original Registry and thus
// shares the same state with the parent registry.
type prefixedRegistry struct {
	r      Registry
	prefix string
}

// NewPrefixed creates a new Registry backed by r
// with all created metric names prefixed with prefix + ".".
func NewPrefixed(r Registry, prefix string) Registry {
	return &prefixedRegistry{
		r:      r,
		prefix: prefix,
	}
}

// GetOrRegisterCounter creates or finds the Counter given a name.
func (r *prefixedRegistry) GetOrRegisterCounter(name string) kitmetrics.Counter {
	return r.r.GetOrRegisterCounter(r.prefixedName(name))
}

// GetOrRegisterGauge creates or finds the Gauge given a name.
func (r *prefixedRegistry) GetOrRegisterGauge(name string) kitmetrics.Gauge {
	return r.r.GetOrRegisterGauge(r.prefixedName(name))
}

// GetOrRegisterHistogram creates or finds the Histogram given a name.
func (r *prefixedRegistry) GetOrRegisterHistogram(name string, buckets int) kitmetrics.Histogram {
	return r.r.GetOrRegisterHistogram(r.prefixedName(name), buckets)
}

// GetOrRegisterTimer creates or finds the Timer given a name and tag set.
func (r *prefixedRegistry) GetOrRegisterTimer(name string, tags ...string) *metrics.Timer {
	return r.r.GetOrRegisterTimer(r.prefixedName(name), tags...)
}

func (r *prefixedRegistry) prefixedName(name string) string {
	return r.prefix + "." + name
}
