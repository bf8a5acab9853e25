package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"folio/internal/services"
)

const libraryColumns = "id, name, root, content_type, owner_id, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

// AddLibrary registers a new content source. Root must be an absolute path.
func (s *Store) AddLibrary(ctx context.Context, lib Library) (Library, error) {
	lib.Name = strings.TrimSpace(lib.Name)
	lib.OwnerID = strings.TrimSpace(lib.OwnerID)
	if lib.Name == "" {
		return Library{}, services.Wrap(services.ErrValidation, "library", "add", "library name is required", nil)
	}
	if lib.OwnerID == "" {
		return Library{}, services.Wrap(services.ErrValidation, "library", "add", "owner is required", nil)
	}
	if !filepath.IsAbs(lib.Root) {
		return Library{}, services.Wrap(services.ErrValidation, "library", "add",
			fmt.Sprintf("root %q must be an absolute path", lib.Root), nil)
	}
	kind, err := ParseContentType(string(lib.ContentType))
	if err != nil {
		return Library{}, err
	}
	lib.ContentType = kind
	lib.Root = filepath.Clean(lib.Root)
	lib.CreatedAt = s.now().UTC()

	res, err := s.execWithRetry(ctx,
		"INSERT INTO libraries (name, root, content_type, owner_id, created_at) VALUES (?, ?, ?, ?, ?)",
		lib.Name, lib.Root, string(lib.ContentType), lib.OwnerID, formatTime(lib.CreatedAt))
	if err != nil {
		return Library{}, fmt.Errorf("insert library: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Library{}, fmt.Errorf("library id: %w", err)
	}
	lib.ID = id
	return lib, nil
}

// GetLibrary returns the library with the given id.
func (s *Store) GetLibrary(ctx context.Context, id int64) (Library, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+libraryColumns+" FROM libraries WHERE id = ?", id)
	return scanLibraryRow(row, id)
}

// ListLibraries returns every registered library ordered by id.
func (s *Store) ListLibraries(ctx context.Context) ([]Library, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+libraryColumns+" FROM libraries ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	defer rows.Close()

	var libs []Library
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	return libs, rows.Err()
}

// RemoveLibrary deletes a library and its catalog. The scan journal is kept.
func (s *Store) RemoveLibrary(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM libraries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete library: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "library", "remove", fmt.Sprintf("library %d does not exist", id), nil)
	}
	return nil
}

func scanLibraryRow(row rowScanner, id int64) (Library, error) {
	lib, err := scanLibrary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Library{}, services.Wrap(services.ErrNotFound, "library", "lookup",
			fmt.Sprintf("library %d does not exist", id), nil)
	}
	return lib, err
}

// scanLibrary maps a row onto the aggregate. Rows that cannot form a valid
// Library are reported as conversion errors.
func scanLibrary(row rowScanner) (Library, error) {
	var (
		lib       Library
		kind      string
		createdAt string
	)
	if err := row.Scan(&lib.ID, &lib.Name, &lib.Root, &kind, &lib.OwnerID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Library{}, err
		}
		return Library{}, fmt.Errorf("scan library: %w", err)
	}
	parsedKind, err := ParseContentType(kind)
	if err != nil {
		return Library{}, services.Wrap(services.ErrConversion, "library", "map row",
			fmt.Sprintf("library %d has unknown content type %q", lib.ID, kind), nil)
	}
	lib.ContentType = parsedKind
	if !filepath.IsAbs(lib.Root) {
		return Library{}, services.Wrap(services.ErrConversion, "library", "map row",
			fmt.Sprintf("library %d root %q is not absolute", lib.ID, lib.Root), nil)
	}
	if lib.CreatedAt, err = parseTime(createdAt); err != nil {
		return Library{}, services.Wrap(services.ErrConversion, "library", "map row",
			fmt.Sprintf("library %d created_at", lib.ID), err)
	}
	return lib, nil
}
