/* Copyright (c) 2018 Salesforce
 * All rights reserved.
 * Licensed under the BSD 3-Clause license.
 * For full license text, see LICENSE.txt file in the repo root  or https://opensource.org/licenses/BSD-3-Clause
 */

// Package metrics wraps the standard go-kit metric types with the
// pieces the webmetrics interceptors need: a Provider for creating
// metrics, a tag-aware Timer with percentile snapshots, and a
// cardinality estimator for large sets.
//
// It is deliberately a thin layer. Aggregation and exposition belong
// to the Provider implementations under metrics/provider.
package metrics

import (
	"github.com/go-kit/kit/metrics"
)

// Provider represents the different types of metrics that a provider
// can expose. We duplicate the definition from go-kit for 2 reasons:
//
//  1. A little copying never hurt anyone (and in copying, we avoid the
//     need to import and vendor all of go-kit's supported providers)
//  2. It provides us an extension mechanism for our own custom metric
//     types that we can implement without go-kit's approval.
type Provider interface {
	NewCounter(name string) metrics.Counter
	NewGauge(name string) metrics.Gauge
	NewHistogram(name string, buckets int) metrics.Histogram
	NewCardinalityCounter(name string) CardinalityCounter
	Stop()
}

// CardinalityCounter describes a metric that reports a count of the
// number of unique values inserted.
type CardinalityCounter interface {
	With(labelValues ...string) CardinalityCounter
	Insert(b []byte)
}
