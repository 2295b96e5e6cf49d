package metrics

import (
	"sync"
	"time"

	"github.com/VividCortex/gohistogram"
	kitmetrics "github.com/go-kit/kit/metrics"
)

// defaultTimingUnit is the resolution we'll use for all duration measurements.
const defaultTimingUnit = time.Millisecond

// distBins is the streaming histogram resolution used for percentile
// estimation. Matches the bucket count used for provider histograms.
const distBins = 50

// PercentileValue is a single entry of a Timer snapshot.
type PercentileValue struct {
	Percentile float64
	Value      float64
}

// Timer records a distribution of durations into a histogram, in
// milliseconds. When constructed with percentiles it additionally
// feeds a streaming histogram so Snapshot can estimate those
// percentiles without help from the backing provider.
//
// Timers are safe for concurrent use.
type Timer struct {
	h           kitmetrics.Histogram
	percentiles []float64

	mu   sync.Mutex
	dist gohistogram.Histogram
}

// NewTimer wraps the given histogram. Percentiles outside [0, 1] are
// the caller's problem; Config.Validate rejects them upstream.
func NewTimer(h kitmetrics.Histogram, percentiles []float64) *Timer {
	t := &Timer{
		h:           h,
		percentiles: append([]float64(nil), percentiles...),
	}
	if len(t.percentiles) > 0 {
		t.dist = gohistogram.NewHistogram(distBins)
	}
	return t
}

// Record observes a single duration. Negative durations, which can
// happen during clock adjustments, are clamped to zero.
func (t *Timer) Record(d time.Duration) {
	if d < 0 {
		d = 0
	}
	v := float64(d) / float64(defaultTimingUnit)

	t.h.Observe(v)

	if t.dist != nil {
		t.mu.Lock()
		t.dist.Add(v)
		t.mu.Unlock()
	}
}

// ObserveSince records the time elapsed since t0. It's intended to be
// called once at the end of the dispatch being timed.
func (t *Timer) ObserveSince(t0 time.Time) {
	t.Record(time.Since(t0))
}

// Percentiles returns the percentiles this timer publishes.
func (t *Timer) Percentiles() []float64 {
	return append([]float64(nil), t.percentiles...)
}

// Snapshot returns one estimated value per configured percentile, in
// configuration order. It returns nil when no percentiles were
// configured.
func (t *Timer) Snapshot() []PercentileValue {
	if t.dist == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	vals := make([]PercentileValue, len(t.percentiles))
	for i, p := range t.percentiles {
		vals[i] = PercentileValue{Percentile: p, Value: t.dist.Quantile(p)}
	}
	return vals
}
