package library

import (
	"context"
	"encoding/json"
	"fmt"

	"folio/internal/events"
)

// AppendEvent stores ev in the scan journal.
func (s *Store) AppendEvent(ctx context.Context, ev events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.EventType(), err)
	}
	key := ev.ScanKey()
	at := ev.OccurredAt()
	if at.IsZero() {
		at = s.now()
	}
	if _, err := s.execWithRetry(ctx,
		"INSERT INTO scan_events (scan_id, library_id, event_type, node, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		key.ScanID, key.LibraryID, string(ev.EventType()), events.NodeOf(ev), string(payload), formatTime(at)); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListEvents returns the journal of one scan in insertion order.
func (s *Store) ListEvents(ctx context.Context, scanID string) ([]JournalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, scan_id, library_id, event_type, node, payload, created_at
		FROM scan_events WHERE scan_id = ? ORDER BY id`, scanID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var records []JournalRecord
	for rows.Next() {
		var (
			rec     JournalRecord
			created string
		)
		if err := rows.Scan(&rec.ID, &rec.ScanID, &rec.LibraryID, &rec.Type, &rec.Node, &rec.Payload, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if rec.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parse event created_at: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Decode rebuilds the typed event of a journal record.
func (r JournalRecord) Decode() (events.Event, error) {
	return events.Decode(events.Type(r.Type), []byte(r.Payload))
}
