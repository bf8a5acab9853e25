package library

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Scope holds collaborators for a single pipeline node execution. It pins
// one pooled connection until Close.
type Scope struct {
	conn *sql.Conn
	once sync.Once
}

// OpenScope reserves a connection for one node execution.
func (s *Store) OpenScope(ctx context.Context) (*Scope, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve connection: %w", err)
	}
	return &Scope{conn: conn}, nil
}

// LookupLibrary resolves a library through the scope's connection. Missing
// libraries return services.ErrNotFound; rows that do not map onto a Library
// return services.ErrConversion.
func (sc *Scope) LookupLibrary(ctx context.Context, id int64) (Library, error) {
	row := sc.conn.QueryRowContext(ctx, "SELECT "+libraryColumns+" FROM libraries WHERE id = ?", id)
	return scanLibraryRow(row, id)
}

// Close returns the connection to the pool. It is safe to call more than once.
func (sc *Scope) Close() error {
	var err error
	sc.once.Do(func() {
		err = sc.conn.Close()
	})
	return err
}
