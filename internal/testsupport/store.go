package testsupport

import (
	"context"
	"testing"

	"folio/internal/config"
	"folio/internal/library"
)

// MustOpenStore opens a library.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddLibrary registers a library rooted at root for tests.
func AddLibrary(t testing.TB, store *library.Store, name, root string, kind library.ContentType) library.Library {
	t.Helper()

	lib, err := store.AddLibrary(context.Background(), library.Library{
		Name:        name,
		Root:        root,
		ContentType: kind,
		OwnerID:     "tester",
	})
	if err != nil {
		t.Fatalf("store.AddLibrary: %v", err)
	}
	return lib
}
