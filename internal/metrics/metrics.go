// Package metrics holds the Prometheus collectors shared by provider clients,
// caches and the engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/benithors/dotquote/internal/serrors"
)

const namespace = "dotquote"

// DefaultBuckets are latency buckets in seconds.
var DefaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30} //nolint: gochecknoglobals

//nolint: gochecknoglobals
var (
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Outbound provider calls by outcome.",
	}, []string{"provider", "operation", "outcome"})

	ProviderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Latency of outbound provider calls.",
		Buckets:   DefaultBuckets,
	}, []string{"provider", "operation"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by result (hit, miss, expired).",
	}, []string{"cache", "result"})

	PriceTableRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_table_refreshes_total",
		Help:      "Price table refreshes issued per provider.",
	}, []string{"provider"})
)

// Outcome turns an error into a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := serrors.KindOf(err); k != nil {
		return k.Error()
	}
	return "error"
}

// ObserveCall records one provider call started at start.
func ObserveCall(provider, operation string, start time.Time, err error) {
	ProviderRequests.WithLabelValues(provider, operation, Outcome(err)).Inc()
	ProviderDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}
