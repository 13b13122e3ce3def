package cache

import "sync"

// SimpleCache is a thread-safe cache with no eviction policy. Entries stay
// until explicitly deleted or the cache is cleared.
type SimpleCache[V any] struct {
	mu      sync.RWMutex
	items   map[string]V
	stats   *Statistics
	metrics *cacheMetrics
	evictFn EvictCallback[V]
}

// NewSimple creates a SimpleCache.
func NewSimple[V any](opts ...Option[V]) (*SimpleCache[V], error) {
	o := applyOptions(opts)

	var metrics *cacheMetrics
	if o.metricsReg != nil && o.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(o.metricsReg, o.metricsPrefix)
		if err != nil {
			return nil, err
		}
	}

	return &SimpleCache[V]{
		items:   make(map[string]V),
		stats:   NewStatistics(),
		metrics: metrics,
		evictFn: o.evictCallback,
	}, nil
}

// Get retrieves a value by key.
func (c *SimpleCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	value, exists := c.items[key]
	c.mu.RUnlock()

	if exists {
		c.stats.Hit()
		c.metrics.recordHit()
	} else {
		c.stats.Miss()
		c.metrics.recordMiss()
	}
	return value, exists
}

// Set stores a value. Last writer wins.
func (c *SimpleCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	_, exists := c.items[key]
	c.items[key] = value
	size := len(c.items)
	c.mu.Unlock()

	c.stats.Set()
	c.stats.UpdateSize(int64(size))
	c.metrics.recordSet()
	c.metrics.updateSize(size)

	return !exists, nil
}

// Delete removes an entry by key.
func (c *SimpleCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	value, exists := c.items[key]
	if exists {
		delete(c.items, key)
		if c.evictFn != nil {
			defer c.evictFn(key, value)
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	if exists {
		c.stats.Delete()
		c.stats.UpdateSize(int64(size))
		c.metrics.recordDelete()
		c.metrics.updateSize(size)
	}

	return exists, nil
}

// Clear removes all entries.
func (c *SimpleCache[V]) Clear() error {
	c.mu.Lock()
	evicted := c.items
	c.items = make(map[string]V)
	c.mu.Unlock()

	if c.evictFn != nil {
		for key, value := range evicted {
			c.evictFn(key, value)
		}
	}

	c.stats.UpdateSize(0)
	c.metrics.updateSize(0)
	return nil
}

// Size returns the current number of entries.
func (c *SimpleCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns all keys.
func (c *SimpleCache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	for key := range c.items {
		keys = append(keys, key)
	}
	return keys
}

// Stats returns the cache statistics.
func (c *SimpleCache[V]) Stats() *Statistics {
	return c.stats
}

// Close is a no-op; SimpleCache holds no background resources.
func (c *SimpleCache[V]) Close() error {
	return nil
}
