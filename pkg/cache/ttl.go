package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ttlEntry represents an entry in the TTL cache.
type ttlEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

func (e *ttlEntry[V]) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// TTLCache is a thread-safe cache whose entries expire after a time-to-live.
// Each entry may carry its own TTL via SetWithTTL; Set uses the cache
// default. A background sweeper removes expired entries between accesses.
type TTLCache[V any] struct {
	mu              sync.RWMutex
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	items           map[string]*ttlEntry[V]
	stats           *Statistics
	metrics         *cacheMetrics
	evictFn         EvictCallback[V]

	shutdown chan struct{}
	done     chan struct{}
}

// NewTTL creates a TTL cache with the given default TTL and sweeper interval.
// The sweeper goroutine exits when ctx is cancelled or Close is called.
func NewTTL[V any](
	ctx context.Context, defaultTTL, cleanupInterval time.Duration, opts ...Option[V],
) (*TTLCache[V], error) {
	o := applyOptions(opts)

	var metrics *cacheMetrics
	if o.metricsReg != nil && o.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(o.metricsReg, o.metricsPrefix)
		if err != nil {
			return nil, err
		}
	}

	c := &TTLCache[V]{
		defaultTTL:      defaultTTL,
		cleanupInterval: cleanupInterval,
		items:           make(map[string]*ttlEntry[V]),
		stats:           NewStatistics(),
		metrics:         metrics,
		evictFn:         o.evictCallback,
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
	}

	go c.sweep(ctx)

	return c, nil
}

// Get retrieves a value by key, checking for expiration.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		var zero V
		c.stats.Miss()
		c.metrics.recordMiss()
		return zero, false
	}

	if entry.isExpired(time.Now()) {
		c.mu.Lock()
		// Re-check under the write lock before removing.
		if current, still := c.items[key]; still && current.isExpired(time.Now()) {
			delete(c.items, key)
			if c.evictFn != nil {
				defer c.evictFn(key, current.value)
			}
			c.stats.Eviction()
			c.stats.UpdateSize(int64(len(c.items)))
			c.metrics.recordEviction()
			c.metrics.updateSize(len(c.items))
		}
		c.mu.Unlock()

		var zero V
		c.stats.Miss()
		c.metrics.recordMiss()
		return zero, false
	}

	c.stats.Hit()
	c.metrics.recordHit()
	return entry.value, true
}

// Set stores a value with the cache's default TTL. Last writer wins.
func (c *TTLCache[V]) Set(key string, value V) (bool, error) {
	return c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value with an explicit per-entry TTL. Last writer wins.
func (c *TTLCache[V]) SetWithTTL(key string, value V, ttl time.Duration) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	expiresAt := time.Now().Add(ttl)

	c.mu.Lock()
	_, exists := c.items[key]
	c.items[key] = &ttlEntry[V]{key: key, value: value, expiresAt: expiresAt}
	size := len(c.items)
	c.mu.Unlock()

	c.stats.Set()
	c.stats.UpdateSize(int64(size))
	c.metrics.recordSet()
	c.metrics.updateSize(size)

	return !exists, nil
}

// Delete removes an entry by key.
func (c *TTLCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	entry, exists := c.items[key]
	if exists {
		delete(c.items, key)
		if c.evictFn != nil {
			defer c.evictFn(key, entry.value)
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

// Clear removes all entries from the cache.
func (c *TTLCache[V]) Clear() error {
	c.mu.Lock()
	evicted := c.items
	c.items = make(map[string]*ttlEntry[V])
	c.mu.Unlock()

	if c.evictFn != nil {
		for _, entry := range evicted {
			c.evictFn(entry.key, entry.value)
		}
	}

	c.stats.UpdateSize(0)
	c.metrics.updateSize(0)
	return nil
}

// Size returns the current number of entries, expired or not.
func (c *TTLCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns all unexpired keys.
func (c *TTLCache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	now := time.Now()
	for key, entry := range c.items {
		if now.Before(entry.expiresAt) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Stats returns the cache statistics.
func (c *TTLCache[V]) Stats() *Statistics {
	return c.stats
}

// Close stops the background sweeper.
func (c *TTLCache[V]) Close() error {
	select {
	case <-c.shutdown:
		// Already shutting down
	default:
		close(c.shutdown)
	}

	select {
	case <-c.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for cache sweeper to finish")
	}
}

// sweep periodically removes expired entries.
func (c *TTLCache[V]) sweep(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *TTLCache[V]) removeExpired() {
	now := time.Now()
	var expired []*ttlEntry[V]

	c.mu.Lock()
	for key, entry := range c.items {
		if entry.isExpired(now) {
			expired = append(expired, entry)
			delete(c.items, key)
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	// Eviction callbacks run outside the lock.
	if c.evictFn != nil {
		for _, entry := range expired {
			c.evictFn(entry.key, entry.value)
		}
	}

	if len(expired) > 0 {
		for range expired {
			c.stats.Eviction()
			c.metrics.recordEviction()
		}
		c.stats.UpdateSize(int64(size))
		c.metrics.updateSize(size)
	}
}
