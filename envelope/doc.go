// Package envelope defines the Unit of Work, the envelope that carries a
// tagged payload and its processing outcome end-to-end through the
// pipeline: created at ingress, mutated by exactly one normalization
// stage, consumed by the router, then handed to the transport collaborator.
package envelope
