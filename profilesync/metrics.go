package profilesync

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/walletsync/metric"
)

// syncMetrics tracks profile sync outcomes. All record methods are nil-safe
// so the syncer works unchanged with metrics disabled.
type syncMetrics struct {
	memoHits           prometheus.Counter
	storeHits          prometheus.Counter
	generations        prometheus.Counter
	generationFailures prometheus.Counter
	fallbackWrites     prometheus.Counter
}

func newSyncMetrics(registrar metric.MetricsRegistrar, logger *slog.Logger) *syncMetrics {
	m := &syncMetrics{
		memoHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "profilesync_memo_hits_total",
			Help: "Profile reads served from the in-process memo",
		}),
		storeHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "profilesync_store_hits_total",
			Help: "Profile reads served from the durable store",
		}),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "profilesync_generations_total",
			Help: "Successful label profile generations",
		}),
		generationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "profilesync_generation_failures_total",
			Help: "Failed label profile generations",
		}),
		fallbackWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "profilesync_fallback_writes_total",
			Help: "Profile writes degraded to the local ephemeral store",
		}),
	}

	registrations := map[string]prometheus.Counter{
		"profilesync_memo_hits_total":           m.memoHits,
		"profilesync_store_hits_total":          m.storeHits,
		"profilesync_generations_total":         m.generations,
		"profilesync_generation_failures_total": m.generationFailures,
		"profilesync_fallback_writes_total":     m.fallbackWrites,
	}
	for name, counter := range registrations {
		if err := registrar.RegisterCounter("profilesync", name, counter); err != nil {
			logger.Warn("metric registration failed", "metric", name, "error", err)
		}
	}
	return m
}

func (m *syncMetrics) recordMemoHit() {
	if m != nil {
		m.memoHits.Inc()
	}
}

func (m *syncMetrics) recordStoreHit() {
	if m != nil {
		m.storeHits.Inc()
	}
}

func (m *syncMetrics) recordGeneration() {
	if m != nil {
		m.generations.Inc()
	}
}

func (m *syncMetrics) recordGenerationFailure() {
	if m != nil {
		m.generationFailures.Inc()
	}
}

func (m *syncMetrics) recordFallbackWrite() {
	if m != nil {
		m.fallbackWrites.Inc()
	}
}
