package scan

import "fmt"

// Status is the lifecycle state of a node within one scan run.
type Status int32

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusCanceled
	StatusFailed
)

var statusNames = map[Status]string{
	StatusPending:   "pending",
	StatusRunning:   "running",
	StatusCompleted: "completed",
	StatusCanceled:  "canceled",
	StatusFailed:    "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled || s == StatusFailed
}

var allowedTransitions = map[Status][]Status{
	StatusPending: {StatusRunning},
	StatusRunning: {StatusCompleted, StatusCanceled, StatusFailed},
}

func isAllowedTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
