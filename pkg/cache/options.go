package cache

import "github.com/prometheus/client_golang/prometheus"

// cacheOptions holds optional configuration shared by all cache types.
type cacheOptions[V any] struct {
	evictCallback EvictCallback[V]
	metricsReg    prometheus.Registerer
	metricsPrefix string
}

// Option is a functional option for cache construction.
type Option[V any] func(*cacheOptions[V])

// WithEvictCallback registers a callback invoked for every evicted or
// deleted entry. Callbacks run outside the cache lock.
func WithEvictCallback[V any](fn EvictCallback[V]) Option[V] {
	return func(o *cacheOptions[V]) {
		o.evictCallback = fn
	}
}

// WithMetrics exposes the cache statistics as Prometheus metrics registered
// under the given prefix, e.g. "iris_identity_rooms".
func WithMetrics[V any](reg prometheus.Registerer, prefix string) Option[V] {
	return func(o *cacheOptions[V]) {
		o.metricsReg = reg
		o.metricsPrefix = prefix
	}
}

func applyOptions[V any](opts []Option[V]) *cacheOptions[V] {
	o := &cacheOptions[V]{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
