package scan

import (
	"context"
	"fmt"
	"sync/atomic"

	"folio/internal/library"
)

// NoParent is passed as the caller of Execute for root nodes.
const NoParent = -1

// Transform maps one input entry to zero or more output entries.
type Transform func(ctx context.Context, lib library.Library, entry library.Entry) ([]library.Entry, error)

// Stage describes the work a node performs.
type Stage struct {
	// Name labels the node in events and logs.
	Name string
	// Operation labels the node's progress.
	Operation string
	Transform Transform
}

// Node is one stage in a scan graph. Parents and Children hold arena indexes.
type Node struct {
	ID       int
	Name     string
	Parents  []int
	Children []int

	operation string
	transform Transform

	status   atomic.Int32
	arrivals atomic.Int32
	// slots holds one deposited payload per parent, in Parents order.
	slots []atomic.Pointer[[]library.Entry]
}

// Status returns the node's current status.
func (n *Node) Status() Status {
	return Status(n.status.Load())
}

// Operation returns the progress label of the node.
func (n *Node) Operation() string {
	return n.operation
}

// IsRoot reports whether the node has no parents.
func (n *Node) IsRoot() bool {
	return len(n.Parents) == 0
}

// transition moves the node to the target status if the status table allows it.
func (n *Node) transition(to Status) error {
	for {
		from := n.Status()
		if !isAllowedTransition(from, to) {
			return fmt.Errorf("node %s: invalid transition %s -> %s", n.Name, from, to)
		}
		if n.status.CompareAndSwap(int32(from), int32(to)) {
			return nil
		}
	}
}

func (n *Node) parentSlot(parent int) int {
	for i, p := range n.Parents {
		if p == parent {
			return i
		}
	}
	return -1
}

// reset prepares the node for a new scan run.
func (n *Node) reset() {
	n.status.Store(int32(StatusPending))
	n.arrivals.Store(0)
	n.slots = make([]atomic.Pointer[[]library.Entry], len(n.Parents))
}

// arrive records one fan-in arrival and reports whether the caller should
// run the body. Only the arrival that completes fan-in returns true, along
// with the merged parent payloads.
func (n *Node) arrive(from int, payload []library.Entry) (bool, []library.Entry, error) {
	if n.IsRoot() {
		if from != NoParent {
			return false, nil, fmt.Errorf("%w: root %s invoked by node %d", ErrRejectedArrival, n.Name, from)
		}
		n.arrivals.Add(1)
		return true, payload, nil
	}

	slot := n.parentSlot(from)
	if slot < 0 {
		return false, nil, fmt.Errorf("%w: node %d is not a parent of %s", ErrRejectedArrival, from, n.Name)
	}
	if !n.slots[slot].CompareAndSwap(nil, &payload) {
		return false, nil, fmt.Errorf("%w: duplicate arrival from node %d at %s", ErrRejectedArrival, from, n.Name)
	}

	count := int(n.arrivals.Add(1))
	parents := len(n.Parents)
	switch {
	case count < parents:
		return false, nil, nil
	case count > parents:
		return false, nil, fmt.Errorf("%w: %s received %d arrivals for %d parents", ErrRejectedArrival, n.Name, count, parents)
	}

	if parents == 1 {
		return true, *n.slots[0].Load(), nil
	}
	inputs := make([][]library.Entry, parents)
	for i := range n.slots {
		inputs[i] = *n.slots[i].Load()
	}
	return true, library.MergeEntries(inputs...), nil
}
