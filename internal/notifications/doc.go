// Package notifications delivers scan outcomes via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Per-event toggles (scan_completed, scan_failed) are honoured
// here so callers notify unconditionally.
package notifications
