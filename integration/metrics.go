package integration

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/walletsync/metric"
)

// orchestratorMetrics tracks cache effectiveness and assembly latency. All
// record methods are nil-safe so the orchestrator works with metrics
// disabled.
type orchestratorMetrics struct {
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	versionMisses  prometheus.Counter
	versionBumps   prometheus.Counter
	syncedWallets  *prometheus.CounterVec
	assemblyTiming prometheus.Histogram
}

func newOrchestratorMetrics(registrar metric.MetricsRegistrar, logger *slog.Logger) *orchestratorMetrics {
	m := &orchestratorMetrics{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "integration_cache_hits_total",
			Help: "Composite reads served from cache",
		}, []string{"kind"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "integration_cache_misses_total",
			Help: "Composite reads that required upstream assembly",
		}, []string{"kind"}),
		versionMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "integration_version_misses_total",
			Help: "Cached records rejected by data version comparison",
		}),
		versionBumps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "integration_version_bumps_total",
			Help: "Global data version updates",
		}),
		syncedWallets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "integration_synced_wallets_total",
			Help: "Batch synchronization outcomes per wallet",
		}, []string{"status"}),
		assemblyTiming: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "integration_assembly_duration_seconds",
			Help:    "Time to assemble a composite wallet record",
			Buckets: prometheus.DefBuckets,
		}),
	}

	vecRegistrations := map[string]*prometheus.CounterVec{
		"integration_cache_hits_total":     m.cacheHits,
		"integration_cache_misses_total":   m.cacheMisses,
		"integration_synced_wallets_total": m.syncedWallets,
	}
	for name, vec := range vecRegistrations {
		if err := registrar.RegisterCounterVec("integration", name, vec); err != nil {
			logger.Warn("metric registration failed", "metric", name, "error", err)
		}
	}
	counterRegistrations := map[string]prometheus.Counter{
		"integration_version_misses_total": m.versionMisses,
		"integration_version_bumps_total":  m.versionBumps,
	}
	for name, counter := range counterRegistrations {
		if err := registrar.RegisterCounter("integration", name, counter); err != nil {
			logger.Warn("metric registration failed", "metric", name, "error", err)
		}
	}
	if err := registrar.RegisterHistogram("integration", "integration_assembly_duration_seconds", m.assemblyTiming); err != nil {
		logger.Warn("metric registration failed", "metric", "integration_assembly_duration_seconds", "error", err)
	}
	return m
}

func (m *orchestratorMetrics) recordCacheHit(kind string) {
	if m != nil {
		m.cacheHits.WithLabelValues(kind).Inc()
	}
}

func (m *orchestratorMetrics) recordCacheMiss(kind string) {
	if m != nil {
		m.cacheMisses.WithLabelValues(kind).Inc()
	}
}

func (m *orchestratorMetrics) recordVersionMiss() {
	if m != nil {
		m.versionMisses.Inc()
	}
}

func (m *orchestratorMetrics) recordVersionBump() {
	if m != nil {
		m.versionBumps.Inc()
	}
}

func (m *orchestratorMetrics) recordBatchSync(successful, failed int) {
	if m != nil {
		m.syncedWallets.WithLabelValues("success").Add(float64(successful))
		m.syncedWallets.WithLabelValues("error").Add(float64(failed))
	}
}

func (m *orchestratorMetrics) observeAssembly(d time.Duration) {
	if m != nil {
		m.assemblyTiming.Observe(d.Seconds())
	}
}
