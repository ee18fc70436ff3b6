// Package metrics provides Prometheus metrics for the lookup cache and the resolver.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the catalog lookup metrics.
type Metrics struct {
	// Cache operation metrics
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
	CacheEntries       prometheus.Gauge
	CachePersistsTotal *prometheus.CounterVec // by result (ok, error)
	CacheCorruptTotal  prometheus.Counter     // loads that fell back to an empty cache

	// Resolver metrics
	ResolutionsTotal      *prometheus.CounterVec   // by outcome (found, not_found, transport_error) and source
	SearchDurationSeconds *prometheus.HistogramVec // remote search latency by result
}

// New creates a Metrics instance registered on reg.
// A nil reg uses a private registry so tests can build as many as they like.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		CacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sbname_cache_hits_total",
			Help: "Total number of lookup cache hits",
		}),

		CacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sbname_cache_misses_total",
			Help: "Total number of lookup cache misses",
		}),

		CacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sbname_cache_entries",
			Help: "Current number of records in the lookup cache",
		}),

		CachePersistsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sbname_cache_persists_total",
			Help: "Total number of cache persist operations by result",
		}, []string{"result"}),

		CacheCorruptTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sbname_cache_corrupt_total",
			Help: "Total number of cache loads that found an unreadable slot",
		}),

		ResolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sbname_resolutions_total",
			Help: "Total number of code resolutions by outcome and source",
		}, []string{"outcome", "source"}),

		SearchDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sbname_search_duration_seconds",
			Help:    "Duration of remote catalog searches",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"result"}),
	}
}

func (m *Metrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}

// SetCacheEntries updates the cache entry gauge.
func (m *Metrics) SetCacheEntries(n int) {
	m.CacheEntries.Set(float64(n))
}

// RecordPersist counts a persist by whether it failed.
func (m *Metrics) RecordPersist(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CachePersistsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordCorrupt() {
	m.CacheCorruptTotal.Inc()
}

// RecordResolution counts one Resolve call. source is empty for NotFound
// outcomes that never reached a lookup.
func (m *Metrics) RecordResolution(outcome, source string) {
	if source == "" {
		source = "none"
	}
	m.ResolutionsTotal.WithLabelValues(outcome, source).Inc()
}

// ObserveSearch records the latency of one remote search.
func (m *Metrics) ObserveSearch(err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SearchDurationSeconds.WithLabelValues(result).Observe(durationSeconds)
}

// CacheHitRate calculates the cache hit rate.
// This is a helper for testing; in production, use Prometheus queries.
func CacheHitRate(hits, misses float64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return hits / total
}
