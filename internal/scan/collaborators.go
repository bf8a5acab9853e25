package scan

import (
	"context"

	"folio/internal/events"
	"folio/internal/library"
)

// Key identifies one scan run.
type Key = events.Key

// LibraryLookup resolves the library a scan belongs to.
type LibraryLookup interface {
	LookupLibrary(ctx context.Context, id int64) (library.Library, error)
}

// Scope carries the collaborators of a single node execution.
type Scope interface {
	LibraryLookup
	Close() error
}

// ScopeFactory opens a fresh Scope for every node execution.
type ScopeFactory interface {
	OpenScope(ctx context.Context) (Scope, error)
}

// ScopeFactoryFunc adapts a function to ScopeFactory.
type ScopeFactoryFunc func(ctx context.Context) (Scope, error)

// OpenScope implements ScopeFactory.
func (f ScopeFactoryFunc) OpenScope(ctx context.Context) (Scope, error) {
	return f(ctx)
}

// Handoff receives the output of terminal nodes.
type Handoff interface {
	PersistEntries(ctx context.Context, key Key, entries []library.Entry) error
}

// StoreScopes adapts a library.Store to ScopeFactory.
func StoreScopes(store *library.Store) ScopeFactory {
	return ScopeFactoryFunc(func(ctx context.Context) (Scope, error) {
		scope, err := store.OpenScope(ctx)
		if err != nil {
			return nil, err
		}
		return scope, nil
	})
}
