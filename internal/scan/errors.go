package scan

import "errors"

var (
	// ErrCycle reports a graph whose edges form a cycle.
	ErrCycle = errors.New("scan graph contains a cycle")
	// ErrInvalidGraph reports malformed graph structure.
	ErrInvalidGraph = errors.New("invalid scan graph")
	// ErrGraphBusy is returned when a graph is started while a previous run is still active.
	ErrGraphBusy = errors.New("scan graph already running")
	// ErrRejectedArrival marks a fan-in arrival that cannot run the node body.
	ErrRejectedArrival = errors.New("fan-in arrival rejected")
	// ErrBranchFailed wraps the error of every failed node reported by Scan.Wait.
	ErrBranchFailed = errors.New("scan branch failed")
)
