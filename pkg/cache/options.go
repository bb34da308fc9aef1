package cache

import "github.com/prometheus/client_golang/prometheus"

// cacheOptions holds optional configuration applied at construction.
type cacheOptions[V any] struct {
	metricsReg    prometheus.Registerer
	metricsPrefix string
	evictCallback EvictCallback[V]
}

// Option configures a cache at construction time.
type Option[V any] func(*cacheOptions[V])

// WithMetrics enables Prometheus metrics export under the given prefix.
func WithMetrics[V any](reg prometheus.Registerer, prefix string) Option[V] {
	return func(o *cacheOptions[V]) {
		o.metricsReg = reg
		o.metricsPrefix = prefix
	}
}

// WithEvictCallback sets a callback invoked when entries are evicted.
func WithEvictCallback[V any](fn EvictCallback[V]) Option[V] {
	return func(o *cacheOptions[V]) {
		o.evictCallback = fn
	}
}

func applyOptions[V any](options ...Option[V]) *cacheOptions[V] {
	opts := &cacheOptions[V]{}
	for _, opt := range options {
		opt(opts)
	}
	return opts
}
