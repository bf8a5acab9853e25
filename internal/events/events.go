package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies an event kind on the wire and in the journal.
type Type string

const (
	TypeJobProgress   Type = "scan.job_progress"
	TypeScanProgress  Type = "scan.progress"
	TypeScanFailed    Type = "scan.failed"
	TypeScanCompleted Type = "scan.completed"
)

// Key identifies the scan an event belongs to.
type Key struct {
	ScanID    string `json:"scan_id"`
	LibraryID int64  `json:"library_id"`
	UserID    string `json:"user_id"`
}

// Event is implemented by every scan event.
type Event interface {
	EventType() Type
	ScanKey() Key
	OccurredAt() time.Time
}

// ProgressSnapshot is the serialized form of a node's progress.
type ProgressSnapshot struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Operation string `json:"operation"`
}

// Percent returns completion in the 0-100 range.
func (p ProgressSnapshot) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Completed) * 100 / float64(p.Total)
}

// JobProgressChanged reports the advancement of one pipeline node.
type JobProgressChanged struct {
	Key
	Node      string           `json:"node"`
	Progress  ProgressSnapshot `json:"progress"`
	Timestamp time.Time        `json:"timestamp"`
}

// ScanProgressChanged is emitted once a pipeline node fully completes.
type ScanProgressChanged struct {
	Key
	Node      string    `json:"node"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanFailed is emitted when a pipeline branch stops on a business error.
type ScanFailed struct {
	Key
	Node      string    `json:"node"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanCompleted is emitted when every branch of a scan finished without
// failure or cancellation.
type ScanCompleted struct {
	Key
	Items     int       `json:"items"`
	Duration  string    `json:"duration,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e JobProgressChanged) EventType() Type        { return TypeJobProgress }
func (e JobProgressChanged) ScanKey() Key           { return e.Key }
func (e JobProgressChanged) OccurredAt() time.Time  { return e.Timestamp }
func (e ScanProgressChanged) EventType() Type       { return TypeScanProgress }
func (e ScanProgressChanged) ScanKey() Key          { return e.Key }
func (e ScanProgressChanged) OccurredAt() time.Time { return e.Timestamp }
func (e ScanFailed) EventType() Type                { return TypeScanFailed }
func (e ScanFailed) ScanKey() Key                   { return e.Key }
func (e ScanFailed) OccurredAt() time.Time          { return e.Timestamp }
func (e ScanCompleted) EventType() Type             { return TypeScanCompleted }
func (e ScanCompleted) ScanKey() Key                { return e.Key }
func (e ScanCompleted) OccurredAt() time.Time       { return e.Timestamp }

// Decode rebuilds an event from its journal representation.
func Decode(kind Type, payload []byte) (Event, error) {
	var (
		ev  Event
		err error
	)
	switch kind {
	case TypeJobProgress:
		var v JobProgressChanged
		err = json.Unmarshal(payload, &v)
		ev = v
	case TypeScanProgress:
		var v ScanProgressChanged
		err = json.Unmarshal(payload, &v)
		ev = v
	case TypeScanFailed:
		var v ScanFailed
		err = json.Unmarshal(payload, &v)
		ev = v
	case TypeScanCompleted:
		var v ScanCompleted
		err = json.Unmarshal(payload, &v)
		ev = v
	default:
		return nil, fmt.Errorf("decode event: unknown type %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", kind, err)
	}
	return ev, nil
}

// NodeOf returns the pipeline node an event refers to, if any.
func NodeOf(ev Event) string {
	switch v := ev.(type) {
	case JobProgressChanged:
		return v.Node
	case ScanProgressChanged:
		return v.Node
	case ScanFailed:
		return v.Node
	default:
		return ""
	}
}
