package scan_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"folio/internal/events"
	"folio/internal/library"
	"folio/internal/scan"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func sha(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func TestBooksPipelineEndToEnd(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "frank_herbert - dune (1965).epub"), "dune")
	writeFile(t, filepath.Join(root, "sci-fi", "neuromancer.PDF"), "neuromancer")
	writeFile(t, filepath.Join(root, "cover.jpg"), "jpeg")
	writeFile(t, filepath.Join(root, ".trash", "old.epub"), "old")
	writeFile(t, filepath.Join(root, "notes.djvu"), "notes")

	payload := []library.Entry{
		{Path: filepath.Join(root, "frank_herbert - dune (1965).epub")},
		{Path: filepath.Join(root, "sci-fi", "neuromancer.PDF")},
		{Path: filepath.Join(root, "cover.jpg")},
		{Path: filepath.Join(root, ".trash", "old.epub")},
		{Path: filepath.Join(root, "notes.djvu")},
		{Path: filepath.Join(root, "vanished.epub")},
		{Path: filepath.Join(root, "sci-fi")},
		{Path: "/elsewhere/outside.epub"},
	}

	b := scan.NewBuilder(scan.BuilderOptions{
		ExtraExtensions: map[library.ContentType][]string{library.ContentBooks: {"djvu"}},
	})
	g, err := b.Build(library.ContentBooks)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rec := &events.Recorder{}
	handoff := &recordingHandoff{}
	d := deps(newFakeScopes(library.ContentBooks, root), rec)
	d.Handoff = handoff

	s, err := scan.Start(context.Background(), g, testKey, payload, d)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := waitScan(t, s); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	calls := handoff.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one handoff from merge, got %d", len(calls))
	}
	got := calls[0]
	if len(got) != 3 {
		t.Fatalf("expected 3 catalog entries, got %+v", got)
	}
	byRel := map[string]library.Entry{}
	for _, e := range got {
		byRel[e.RelPath] = e
	}

	dune := byRel["frank_herbert - dune (1965).epub"]
	if dune.Title != "Dune" || dune.Author != "Frank Herbert" || dune.Fingerprint != sha("dune") || dune.Ext != ".epub" {
		t.Fatalf("unexpected dune entry %+v", dune)
	}
	neuro := byRel[filepath.Join("sci-fi", "neuromancer.PDF")]
	if neuro.Title != "Neuromancer" || neuro.Ext != ".pdf" || neuro.Fingerprint != sha("neuromancer") || neuro.Size != int64(len("neuromancer")) {
		t.Fatalf("unexpected neuromancer entry %+v", neuro)
	}
	if _, ok := byRel["notes.djvu"]; !ok {
		t.Fatal("configured extra extension should be kept")
	}
	for name, status := range s.Statuses() {
		if status != scan.StatusCompleted {
			t.Fatalf("%s finished %s", name, status)
		}
	}
	if s.Items() != 3 {
		t.Fatalf("Items = %d", s.Items())
	}
}

func TestAudiobookTitlesFromDirectories(t *testing.T) {
	root := t.TempDir()
	chapter := filepath.Join(root, "ursula_le_guin", "a_wizard_of_earthsea", "01 - chapter one.m4b")
	single := filepath.Join(root, "Mary Roach - Stiff", "part1.mp3")
	loose := filepath.Join(root, "the_martian.m4b")
	writeFile(t, chapter, "ch1")
	writeFile(t, single, "p1")
	writeFile(t, loose, "m")

	g, err := scan.NewBuilder(scan.BuilderOptions{}).Build(library.ContentAudiobooks)
	if err != nil {
		t.Fatal(err)
	}
	handoff := &recordingHandoff{}
	d := deps(newFakeScopes(library.ContentAudiobooks, root), &events.Recorder{})
	d.Handoff = handoff
	payload := []library.Entry{{Path: chapter}, {Path: single}, {Path: loose}}
	s, err := scan.Start(context.Background(), g, testKey, payload, d)
	if err != nil {
		t.Fatal(err)
	}
	if err := waitScan(t, s); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	calls := handoff.Calls()
	if len(calls) != 1 || len(calls[0]) != 3 {
		t.Fatalf("unexpected handoff %v", calls)
	}
	byPath := map[string]library.Entry{}
	for _, e := range calls[0] {
		byPath[e.Path] = e
	}
	if e := byPath[chapter]; e.Author != "Ursula Le Guin" || e.Title != "A Wizard Of Earthsea" || e.Fingerprint == "" {
		t.Fatalf("unexpected chapter entry %+v", e)
	}
	if e := byPath[single]; e.Author != "Mary Roach" || e.Title != "Stiff" {
		t.Fatalf("unexpected single-dir entry %+v", e)
	}
	if e := byPath[loose]; e.Title != "The Martian" || e.Author != "" {
		t.Fatalf("unexpected loose entry %+v", e)
	}
}

func TestDiscoverIncludesHiddenWhenAsked(t *testing.T) {
	root := t.TempDir()
	hidden := filepath.Join(root, ".staging", "a.epub")
	writeFile(t, hidden, "a")

	stage := scan.DiscoverStage(true)
	lib := library.Library{Root: root, ContentType: library.ContentBooks}
	out, err := stage.Transform(context.Background(), lib, library.Entry{Path: hidden})
	if err != nil || len(out) != 1 {
		t.Fatalf("expected hidden entry kept, got %v, %v", out, err)
	}
	if out[0].RelPath != filepath.Join(".staging", "a.epub") || out[0].Name != "a.epub" {
		t.Fatalf("unexpected entry %+v", out[0])
	}

	out, err = scan.DiscoverStage(false).Transform(context.Background(), lib, library.Entry{Path: hidden})
	if err != nil || len(out) != 0 {
		t.Fatalf("expected hidden entry dropped, got %v, %v", out, err)
	}
}
