// Package services defines shared utilities consumed by the scan pipeline and
// the components around it.
//
// Key responsibilities:
//   - Context helpers that stamp scan IDs, library IDs, and pipeline node
//     names so log lines can be correlated across concurrent branches.
//   - Structured error markers plus the Wrap helper that classify failures
//     (validation, not found, conversion) independently of cancellation.
//
// Use these helpers when wiring new stage logic so error classification and
// observability stay uniform across the pipeline.
package services
