package library

import (
	"testing"
	"time"
)

func TestMergeEntriesDeduplicatesByPath(t *testing.T) {
	mod := time.Unix(100, 0)
	titled := []Entry{
		{Path: "/lib/b.epub", Name: "b.epub", Title: "B"},
		{Path: "/lib/a.epub", Name: "a.epub", Title: "A", ModTime: mod},
	}
	fingerprinted := []Entry{
		{Path: "/lib/a.epub", Name: "a.epub", Title: "ignored", Fingerprint: "fa", Size: 5},
		{Path: "/lib/c.epub", Name: "c.epub", Fingerprint: "fc"},
	}

	merged := MergeEntries(titled, fingerprinted)
	if len(merged) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(merged))
	}
	if merged[0].Path != "/lib/a.epub" || merged[1].Path != "/lib/b.epub" || merged[2].Path != "/lib/c.epub" {
		t.Fatalf("unexpected order %v", merged)
	}
	a := merged[0]
	if a.Title != "A" || a.Fingerprint != "fa" || a.Size != 5 || !a.ModTime.Equal(mod) {
		t.Fatalf("unexpected merge %+v", a)
	}
	if titled[1].Fingerprint != "" {
		t.Fatal("inputs must not be mutated")
	}
}

func TestParseContentType(t *testing.T) {
	tests := []struct {
		raw     string
		want    ContentType
		wantErr bool
	}{
		{raw: "books", want: ContentBooks},
		{raw: " Comics ", want: ContentComics},
		{raw: "AUDIOBOOKS", want: ContentAudiobooks},
		{raw: "movies", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseContentType(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseContentType(%q) err = %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseContentType(%q) = %q", tt.raw, got)
		}
	}
}

func TestExtensionSetIncludesExtras(t *testing.T) {
	set := ExtensionSet(ContentBooks, "DJVU", ".fb2", " ")
	for _, ext := range []string{".epub", ".pdf", ".djvu", ".fb2"} {
		if _, ok := set[ext]; !ok {
			t.Fatalf("expected %s in set", ext)
		}
	}
	if _, ok := set[".cbz"]; ok {
		t.Fatal("comic extension leaked into books")
	}
	if NormalizeExt("Dune.EPUB") != ".epub" {
		t.Fatalf("NormalizeExt = %q", NormalizeExt("Dune.EPUB"))
	}
}
