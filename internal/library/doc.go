// Package library owns folio's library aggregate and its SQLite persistence.
//
// A Library is a registered content source (a directory of books, comics, or
// audiobooks). The Store keeps libraries, the catalog produced by scans, and
// the scan event journal in one SQLite database. Scans resolve libraries
// through short-lived Scopes, each pinned to a single pooled connection, and
// hand their terminal output to the Store through PersistEntries.
package library
