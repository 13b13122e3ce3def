// Package worker provides concurrent task execution primitives for the
// pipeline: a generic worker pool for unordered work, and a keyed lane
// executor that serializes work sharing a key while parallelizing across
// keys. The lane executor is what gives each twin an in-order stimulus
// stream without a global ordering guarantee.
package worker
