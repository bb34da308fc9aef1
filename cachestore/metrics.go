package cachestore

import (
	"github.com/prometheus/client_golang/prometheus"
)

// storeMetrics tracks per-tier cache activity.
type storeMetrics struct {
	hits           *prometheus.CounterVec
	misses         prometheus.Counter
	sets           *prometheus.CounterVec
	fallbacks      *prometheus.CounterVec
	degradedWrites *prometheus.CounterVec
}

// WithMetrics registers store metrics with the given registerer. A metrics
// registration conflict leaves the store without metrics rather than failing
// construction; the cache must never block startup.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Store) {
		m := &storeMetrics{
			hits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cachestore_hits_total",
				Help: "Cache hits by tier",
			}, []string{"tier"}),
			misses: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "cachestore_misses_total",
				Help: "Cache misses across all tiers",
			}),
			sets: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cachestore_sets_total",
				Help: "Cache writes by tier",
			}, []string{"tier"}),
			fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cachestore_fallbacks_total",
				Help: "Reads that fell through an unhealthy tier",
			}, []string{"tier"}),
			degradedWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cachestore_degraded_writes_total",
				Help: "Writes that degraded past a failing tier",
			}, []string{"tier"}),
		}

		collectors := []prometheus.Collector{m.hits, m.misses, m.sets, m.fallbacks, m.degradedWrites}
		for _, c := range collectors {
			if err := reg.Register(c); err != nil {
				s.logger.Warn("cachestore metrics registration failed", "error", err)
				return
			}
		}
		s.metrics = m
	}
}

func (m *storeMetrics) recordHit(tier string)           { m.hits.WithLabelValues(tier).Inc() }
func (m *storeMetrics) recordMiss()                     { m.misses.Inc() }
func (m *storeMetrics) recordSet(tier string)           { m.sets.WithLabelValues(tier).Inc() }
func (m *storeMetrics) recordFallback(tier string)      { m.fallbacks.WithLabelValues(tier).Inc() }
func (m *storeMetrics) recordDegradedWrite(tier string) { m.degradedWrites.WithLabelValues(tier).Inc() }
