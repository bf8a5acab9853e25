// Package scan runs the library scan pipeline.
//
// A pipeline is a Graph of Nodes held in an arena and addressed by index.
// Each node applies one stage transform (discovery, extension filtering,
// title enrichment, fingerprinting, merging) to the entries handed to it by
// its parents. A node's body runs exactly once per scan: concurrent parent
// completions race on an atomic fan-in counter and only the arrival that
// brings the counter to the parent count dispatches the body.
//
// Bodies run on background goroutines bounded by a scan-wide worker pool.
// Progress is published as events, throttled per node. Business failures
// stop only the failing branch, mark the node failed, and publish
// ScanFailed; cancellation stops every node at its next check point. Both
// surface through Scan.Wait.
package scan
