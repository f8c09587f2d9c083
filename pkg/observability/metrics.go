package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes recorded on StoreFetches
const (
	OutcomeFound   = "found"
	OutcomeMissing = "missing"
	OutcomeError   = "error"
)

// Collector holds the Prometheus metrics for config lookups
type Collector struct {
	registry *prometheus.Registry

	// Store metrics
	StoreFetches       *prometheus.CounterVec
	StoreFetchDuration *prometheus.HistogramVec

	// Resolver metrics
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	ResolveErrors *prometheus.CounterVec
}

// NewCollector creates a collector registered on its own registry, so several
// collectors can coexist in one process (tests, multiple resolvers).
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		StoreFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_fetches_total",
				Help:      "Total number of section fetches from the backing store",
			},
			[]string{"environment", "outcome"},
		),
		StoreFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_fetch_duration_seconds",
				Help:      "Backing store fetch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"environment"},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "section_cache_hits_total",
				Help:      "Total number of section lookups served from the cache",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "section_cache_misses_total",
				Help:      "Total number of section lookups that required resolution",
			},
		),
		ResolveErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "section_resolve_errors_total",
				Help:      "Total number of failed section resolutions by error type",
			},
			[]string{"type"},
		),
	}

	registry.MustRegister(
		c.StoreFetches,
		c.StoreFetchDuration,
		c.CacheHits,
		c.CacheMisses,
		c.ResolveErrors,
	)

	return c
}

// Registry returns the registry holding this collector's metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
