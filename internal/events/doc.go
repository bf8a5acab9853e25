// Package events defines the scan events published by the pipeline and the
// in-process bus that delivers them.
//
// Events are plain JSON-serializable values keyed by scan, library, and user.
// The Bus fans each published event out to subscribers synchronously; sinks
// in this package write events to the structured log (sampled per pipeline
// node) and to a persistent journal.
package events
