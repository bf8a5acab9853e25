package scan_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"folio/internal/events"
	"folio/internal/library"
	"folio/internal/scan"
)

var testKey = scan.Key{ScanID: "scan-test", LibraryID: 1, UserID: "reader"}

type fakeScopes struct {
	lib    library.Library
	err    error
	opened atomic.Int32
	closed atomic.Int32
}

func newFakeScopes(kind library.ContentType, root string) *fakeScopes {
	return &fakeScopes{lib: library.Library{ID: testKey.LibraryID, Name: "test", Root: root, ContentType: kind, OwnerID: testKey.UserID}}
}

func (f *fakeScopes) OpenScope(context.Context) (scan.Scope, error) {
	f.opened.Add(1)
	return &fakeScope{parent: f}, nil
}

type fakeScope struct{ parent *fakeScopes }

func (s *fakeScope) LookupLibrary(context.Context, int64) (library.Library, error) {
	if s.parent.err != nil {
		return library.Library{}, s.parent.err
	}
	return s.parent.lib, nil
}

func (s *fakeScope) Close() error {
	s.parent.closed.Add(1)
	return nil
}

type recordingHandoff struct {
	mu    sync.Mutex
	calls [][]library.Entry
	err   error
}

func (h *recordingHandoff) PersistEntries(_ context.Context, _ scan.Key, entries []library.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, entries)
	return h.err
}

func (h *recordingHandoff) Calls() [][]library.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]library.Entry(nil), h.calls...)
}

// countingStage passes entries through and counts transform invocations.
func countingStage(name string, counter *atomic.Int32) scan.Stage {
	return scan.Stage{
		Name:      name,
		Operation: "Processing " + name,
		Transform: func(_ context.Context, _ library.Library, entry library.Entry) ([]library.Entry, error) {
			counter.Add(1)
			return []library.Entry{entry}, nil
		},
	}
}

func entries(paths ...string) []library.Entry {
	out := make([]library.Entry, 0, len(paths))
	for _, p := range paths {
		out = append(out, library.Entry{Path: p, Name: p, Ext: library.NormalizeExt(p)})
	}
	return out
}

func deps(scopes scan.ScopeFactory, rec events.Publisher) scan.Dependencies {
	return scan.Dependencies{Scopes: scopes, Publisher: rec, Workers: 4}
}

func waitScan(t *testing.T, s *scan.Scan) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatal("scan did not finish in time")
	}
	return err
}

func progressFor(rec *events.Recorder, node string) []events.JobProgressChanged {
	var out []events.JobProgressChanged
	for _, ev := range rec.OfType(events.TypeJobProgress) {
		if p := ev.(events.JobProgressChanged); p.Node == node {
			out = append(out, p)
		}
	}
	return out
}

func countFor(rec *events.Recorder, kind events.Type, node string) int {
	n := 0
	for _, ev := range rec.OfType(kind) {
		if events.NodeOf(ev) == node {
			n++
		}
	}
	return n
}
