// Package metrics holds shared metric conventions for the application.
package metrics

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

// ScopeName is the instrumentation scope used for all meters in this module.
const ScopeName = "filescan"

// Meter returns a meter from the provided provider, or a no-op meter when the
// provider is nil so callers never have to guard instrument registration.
func Meter(mp metric.MeterProvider) metric.Meter {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}

	return mp.Meter(ScopeName)
}
