// Package cache provides generic, thread-safe cache implementations used by
// the identity mapping layer and the outcome bookkeeping of the Iris pipeline.
//
// Two cache types are offered:
//   - TTLCache: per-entry time-to-live eviction with a background sweeper
//   - SimpleCache: no eviction policy (stores items until deleted)
//
// All caches keep statistics (always enabled) and can optionally export them
// as Prometheus metrics via functional options.
package cache
