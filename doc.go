// Package iris is the Communicate Iris bridge core: it consumes chat
// protocol events, classifies them with hierarchical data parcel
// tokens, normalizes them against the clinical identity mapping caches
// and drives per-twin behaviour pipelines whose outcomes are cached
// with full provenance.
//
// The pipeline is: transport in -> ingest -> normalizer -> stimulus
// routing -> behaviour -> outcome cache -> transport out. See the
// service package for the wiring and cmd/iris for the entry point.
package iris
