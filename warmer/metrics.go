package warmer

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/walletsync/metric"
)

// warmerMetrics tracks warming runs and per-wallet outcomes. All record
// methods are nil-safe so the warmer works with metrics disabled.
type warmerMetrics struct {
	runs        *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	runDuration prometheus.Histogram
}

func newWarmerMetrics(registrar metric.MetricsRegistrar, logger *slog.Logger) *warmerMetrics {
	m := &warmerMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warmer_runs_total",
			Help: "Warming runs by final status",
		}, []string{"status"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warmer_wallet_outcomes_total",
			Help: "Per-wallet warming outcomes",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "warmer_run_duration_seconds",
			Help:    "Duration of completed warming runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}

	registrations := map[string]*prometheus.CounterVec{
		"warmer_runs_total":            m.runs,
		"warmer_wallet_outcomes_total": m.outcomes,
	}
	for name, vec := range registrations {
		if err := registrar.RegisterCounterVec("warmer", name, vec); err != nil {
			logger.Warn("metric registration failed", "metric", name, "error", err)
		}
	}
	if err := registrar.RegisterHistogram("warmer", "warmer_run_duration_seconds", m.runDuration); err != nil {
		logger.Warn("metric registration failed", "metric", "warmer_run_duration_seconds", "error", err)
	}
	return m
}

func (m *warmerMetrics) recordRun(status string, d time.Duration) {
	if m != nil {
		m.runs.WithLabelValues(status).Inc()
		m.runDuration.Observe(d.Seconds())
	}
}

func (m *warmerMetrics) recordOutcome(status string) {
	if m != nil {
		m.outcomes.WithLabelValues(status).Inc()
	}
}
