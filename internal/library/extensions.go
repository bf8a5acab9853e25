package library

import (
	"path/filepath"
	"strings"
)

var knownExtensions = map[ContentType][]string{
	ContentBooks:      {".epub", ".pdf", ".mobi", ".azw", ".azw3", ".fb2", ".txt"},
	ContentComics:     {".cbz", ".cbr", ".cb7", ".cbt", ".pdf"},
	ContentAudiobooks: {".m4b", ".mp3", ".m4a", ".aac", ".flac", ".ogg", ".opus"},
}

// ExtensionSet returns the lower-cased extensions accepted for a content
// type, including any configured extras.
func ExtensionSet(kind ContentType, extra ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(knownExtensions[kind])+len(extra))
	for _, ext := range knownExtensions[kind] {
		set[ext] = struct{}{}
	}
	for _, ext := range extra {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// NormalizeExt returns the lower-cased extension of name.
func NormalizeExt(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
