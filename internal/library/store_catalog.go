package library

import (
	"context"
	"fmt"

	"folio/internal/events"
)

// PersistEntries replaces the catalog of key.LibraryID with entries. Items
// recorded by earlier scans but absent from entries are removed.
func (s *Store) PersistEntries(ctx context.Context, key events.Key, entries []Entry) error {
	now := formatTime(s.now())
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin catalog tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO catalog_items
			(library_id, path, title, author, ext, size, fingerprint, scan_id, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(library_id, path) DO UPDATE SET
				title = excluded.title,
				author = excluded.author,
				ext = excluded.ext,
				size = excluded.size,
				fingerprint = excluded.fingerprint,
				scan_id = excluded.scan_id,
				updated_at = excluded.updated_at`)
		if err != nil {
			return fmt.Errorf("prepare catalog upsert: %w", err)
		}
		defer stmt.Close()

		for _, entry := range entries {
			if entry.IsDir {
				continue
			}
			if _, err := stmt.ExecContext(ctx, key.LibraryID, entry.Path, entry.Title, entry.Author,
				entry.Ext, entry.Size, entry.Fingerprint, key.ScanID, now); err != nil {
				return fmt.Errorf("upsert catalog item %s: %w", entry.Path, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM catalog_items WHERE library_id = ? AND scan_id <> ?", key.LibraryID, key.ScanID); err != nil {
			return fmt.Errorf("prune catalog: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit catalog: %w", err)
		}
		return nil
	})
}

// ListCatalog returns the catalog of a library ordered by path.
func (s *Store) ListCatalog(ctx context.Context, libraryID int64) ([]CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT library_id, path, title, author, ext, size, fingerprint, scan_id, updated_at
		FROM catalog_items WHERE library_id = ? ORDER BY path`, libraryID)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	var items []CatalogItem
	for rows.Next() {
		var (
			item    CatalogItem
			updated string
		)
		if err := rows.Scan(&item.LibraryID, &item.Path, &item.Title, &item.Author, &item.Ext,
			&item.Size, &item.Fingerprint, &item.ScanID, &updated); err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		if item.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, fmt.Errorf("parse catalog updated_at: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
