// Package scanner initiates library scans.
//
// The Service resolves the library, runs preflight checks, takes a
// per-library file lock so two folio processes never scan the same library
// at once, enumerates the library root, and starts the content-type
// pipeline from package scan. Waiting on the returned Run releases the lock,
// publishes ScanCompleted on success, and sends ntfy notifications.
package scanner
