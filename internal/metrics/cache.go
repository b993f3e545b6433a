// Package metrics provides Prometheus collectors for the catalog.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache result labels.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultFault = "fault"
)

// CacheMetrics counts read-cache outcomes per region.
type CacheMetrics struct {
	requests      *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

// NewCacheMetrics creates the cache collectors and registers them on reg.
// A nil reg leaves the collectors unregistered, which is handy in tests.
// Registering twice on the same reg shares the already registered collectors.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "catalog",
				Subsystem: "cache",
				Name:      "requests_total",
				Help:      "Read cache lookups by region and result (hit, miss, fault).",
			},
			[]string{"region", "result"},
		),
		invalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "catalog",
				Subsystem: "cache",
				Name:      "invalidations_total",
				Help:      "Read cache invalidations by region.",
			},
			[]string{"region"},
		),
	}
	if reg != nil {
		m.requests = register(reg, m.requests)
		m.invalidations = register(reg, m.invalidations)
	}
	return m
}

// register adds c to reg. When an identical collector is already registered,
// for example by another container sharing the default registerer, the
// existing one is returned so both count into the same series.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Hit records a cache hit.
func (m *CacheMetrics) Hit(region string) {
	m.requests.WithLabelValues(region, ResultHit).Inc()
}

// Miss records a cache miss.
func (m *CacheMetrics) Miss(region string) {
	m.requests.WithLabelValues(region, ResultMiss).Inc()
}

// Fault records a backend failure that was degraded to a miss.
func (m *CacheMetrics) Fault(region string) {
	m.requests.WithLabelValues(region, ResultFault).Inc()
}

// Invalidated records an invalidation.
func (m *CacheMetrics) Invalidated(region string) {
	m.invalidations.WithLabelValues(region).Inc()
}

// Requests exposes the request counter for assertions and custom exporters.
func (m *CacheMetrics) Requests() *prometheus.CounterVec {
	return m.requests
}

// Invalidations exposes the invalidation counter.
func (m *CacheMetrics) Invalidations() *prometheus.CounterVec {
	return m.invalidations
}
