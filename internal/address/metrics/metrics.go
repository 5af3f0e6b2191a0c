package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeFailure  = "failure"
	OutcomeStale    = "stale"
)

// Metrics provides observability for postal code resolution.
type Metrics struct {
	// Completed lookups by outcome, stale discards included
	LookupOutcome *prometheus.CounterVec

	// Upstream lookup latency by outcome
	LookupLatency *prometheus.HistogramVec

	// Cache hits and misses
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// New registers the address metrics with reg. A nil reg leaves them
// unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LookupOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formcheck_address_lookups_total",
			Help: "Completed postal code lookups by outcome",
		}, []string{"outcome"}),

		LookupLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "formcheck_address_lookup_duration_seconds",
			Help:    "Duration of postal code lookups against the address service",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),

		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "formcheck_address_cache_hits_total",
			Help: "Postal code lookups served from the cache",
		}),

		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "formcheck_address_cache_misses_total",
			Help: "Postal code lookups that missed the cache",
		}),
	}
}

// IncrementOutcome records a completed (or discarded) lookup.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.LookupOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveLookupLatency records the duration of an upstream lookup.
func (m *Metrics) ObserveLookupLatency(outcome string, d time.Duration) {
	if m != nil {
		m.LookupLatency.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

func (m *Metrics) RecordCacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) RecordCacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}
