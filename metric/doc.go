// Package metric manages Prometheus metrics for the Iris pipeline: a
// registry wrapper that namespaces per-component collectors, the core
// platform metrics every component shares, and an HTTP handler exposing
// them for scraping.
package metric
