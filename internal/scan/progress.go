package scan

import (
	"fmt"
	"strings"

	"folio/internal/events"
	"folio/internal/services"
)

// Progress is an immutable snapshot of a node's advancement through its input.
type Progress struct {
	completed int
	total     int
	operation string
}

// NewProgress validates and builds a Progress. Completed must lie in
// [0, total], total must be positive, and operation must not be blank.
func NewProgress(completed, total int, operation string) (Progress, error) {
	operation = strings.TrimSpace(operation)
	switch {
	case total <= 0:
		return Progress{}, progressError(fmt.Sprintf("total items must be positive, got %d", total))
	case completed < 0:
		return Progress{}, progressError(fmt.Sprintf("completed items must not be negative, got %d", completed))
	case completed > total:
		return Progress{}, progressError(fmt.Sprintf("completed items %d exceed total %d", completed, total))
	case operation == "":
		return Progress{}, progressError("operation label is required")
	}
	return Progress{completed: completed, total: total, operation: operation}, nil
}

func progressError(message string) error {
	return services.Wrap(services.ErrValidation, "scan", "new progress", message, nil)
}

func (p Progress) Completed() int    { return p.completed }
func (p Progress) Total() int        { return p.total }
func (p Progress) Operation() string { return p.operation }

// Done reports whether every item has been processed.
func (p Progress) Done() bool {
	return p.total > 0 && p.completed == p.total
}

// Snapshot converts p to its event representation.
func (p Progress) Snapshot() events.ProgressSnapshot {
	return events.ProgressSnapshot{Completed: p.completed, Total: p.total, Operation: p.operation}
}

func (p Progress) String() string {
	return fmt.Sprintf("%s %d/%d", p.operation, p.completed, p.total)
}
