// Package errors provides standardized error handling for the Iris event
// pipeline. It defines the pipeline's error taxonomy (correlation extraction,
// directory lookup, routing configuration, lookup timeout), classifies every
// error as transient, invalid, or fatal, and offers helpers for consistent
// error wrapping across components.
//
// Transient errors mark a unit of work FAILED so the transport layer can
// requeue it. Invalid errors are local to one event and never fatal. Fatal
// errors are configuration-time faults that must abort pipeline construction.
package errors
