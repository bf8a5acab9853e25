// Package main hosts the folio CLI entrypoint and command graph.
//
// The Cobra command tree registers libraries, runs scans in the foreground
// with live progress, and inspects the catalog and scan journal stored in
// SQLite. Configuration, logging, and the store are resolved lazily by the
// shared command context so subcommands only pay for what they touch.
package main
