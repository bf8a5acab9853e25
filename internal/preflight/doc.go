// Package preflight provides readiness checks for the filesystem paths and
// services folio depends on.
//
// These checks run in two contexts:
//   - The scan service calls ScanChecks before starting a pipeline. If any
//     check fails the scan is refused instead of failing every file.
//   - The CLI "folio check" command calls RunAll to display overall health.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
