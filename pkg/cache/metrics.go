package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
)

// cacheMetrics mirrors Statistics into Prometheus collectors.
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	sets      prometheus.Counter
	deletes   prometheus.Counter
	evictions prometheus.Counter
	size      prometheus.Gauge
}

// newCacheMetrics registers the cache collectors under the given prefix.
func newCacheMetrics(reg prometheus.Registerer, prefix string) (*cacheMetrics, error) {
	m := &cacheMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_hits_total",
			Help: "Total cache hits",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_misses_total",
			Help: "Total cache misses",
		}),
		sets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_sets_total",
			Help: "Total cache writes",
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_deletes_total",
			Help: "Total explicit cache removals",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_evictions_total",
			Help: "Total expiry-driven cache removals",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_size",
			Help: "Current number of cache entries",
		}),
	}

	collectors := []prometheus.Collector{m.hits, m.misses, m.sets, m.deletes, m.evictions, m.size}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, errors.WrapTransient(err, "cache", "newCacheMetrics", "collector registration")
		}
	}

	return m, nil
}

func (m *cacheMetrics) recordHit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *cacheMetrics) recordMiss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *cacheMetrics) recordSet() {
	if m != nil {
		m.sets.Inc()
	}
}

func (m *cacheMetrics) recordDelete() {
	if m != nil {
		m.deletes.Inc()
	}
}

func (m *cacheMetrics) recordEviction() {
	if m != nil {
		m.evictions.Inc()
	}
}

func (m *cacheMetrics) updateSize(n int) {
	if m != nil {
		m.size.Set(float64(n))
	}
}
