package scan

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"folio/internal/fileutil"
	"folio/internal/library"
	"folio/internal/services"
	"folio/internal/textutil"
)

// Stage names.
const (
	StageDiscover    = "discover"
	StageFilter      = "filter-extensions"
	StageEnrich      = "enrich-titles"
	StageFingerprint = "fingerprint"
	StageMerge       = "merge"
)

// DiscoverStage stats each enumerated path and fills the file descriptor.
// Directories, vanished files, and paths outside the library root are
// dropped; hidden files are dropped unless includeHidden is set.
func DiscoverStage(includeHidden bool) Stage {
	return Stage{
		Name:      StageDiscover,
		Operation: "Discovering files",
		Transform: func(_ context.Context, lib library.Library, entry library.Entry) ([]library.Entry, error) {
			rel, err := filepath.Rel(lib.Root, entry.Path)
			if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
				return nil, nil
			}
			if !includeHidden && hasHiddenSegment(rel) {
				return nil, nil
			}
			info, err := os.Stat(entry.Path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil, nil
				}
				return nil, services.Wrap(services.ErrTransient, "scan", "discover", entry.Path, err)
			}
			if info.IsDir() {
				return nil, nil
			}
			out := entry
			out.RelPath = rel
			out.Name = info.Name()
			out.Ext = library.NormalizeExt(info.Name())
			out.Size = info.Size()
			out.ModTime = info.ModTime()
			out.IsDir = false
			return []library.Entry{out}, nil
		},
	}
}

func hasHiddenSegment(rel string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		if fileutil.IsHidden(segment) {
			return true
		}
	}
	return false
}

// FilterStage keeps entries whose extension belongs to the library's
// content type. extra adds extensions per content type.
func FilterStage(extra map[library.ContentType][]string) Stage {
	sets := make(map[library.ContentType]map[string]struct{}, len(library.ContentTypes()))
	for _, kind := range library.ContentTypes() {
		sets[kind] = library.ExtensionSet(kind, extra[kind]...)
	}
	return Stage{
		Name:      StageFilter,
		Operation: "Filtering by extension",
		Transform: func(_ context.Context, lib library.Library, entry library.Entry) ([]library.Entry, error) {
			ext := entry.Ext
			if ext == "" {
				ext = library.NormalizeExt(entry.Path)
			}
			if _, ok := sets[lib.ContentType][ext]; !ok {
				return nil, nil
			}
			out := entry
			out.Ext = ext
			return []library.Entry{out}, nil
		},
	}
}

// EnrichStage derives Title and Author from file names. Audiobook libraries
// use the Author/Title directory layout when present.
func EnrichStage() Stage {
	return Stage{
		Name:      StageEnrich,
		Operation: "Enriching titles",
		Transform: func(_ context.Context, lib library.Library, entry library.Entry) ([]library.Entry, error) {
			out := entry
			out.Author, out.Title = deriveTitle(lib.ContentType, entry)
			return []library.Entry{out}, nil
		},
	}
}

func deriveTitle(kind library.ContentType, entry library.Entry) (author, title string) {
	name := entry.Name
	if name == "" {
		name = filepath.Base(entry.Path)
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	author, title = textutil.SplitAuthorTitle(textutil.CleanName(stem))

	if kind == library.ContentAudiobooks && entry.RelPath != "" {
		dir := filepath.ToSlash(filepath.Dir(entry.RelPath))
		if dir != "." {
			segments := strings.Split(dir, "/")
			switch {
			case len(segments) >= 2:
				author = textutil.CleanName(segments[0])
				title = textutil.CleanName(segments[1])
			default:
				if dirAuthor, dirTitle := textutil.SplitAuthorTitle(textutil.CleanName(segments[0])); dirTitle != "" {
					author, title = dirAuthor, dirTitle
				}
			}
		}
	}
	if title == "" {
		title = stem
	}
	return textutil.TitleCase(author), textutil.TitleCase(title)
}

// FingerprintStage records the SHA256 of each file's content. Files that
// disappeared since discovery are dropped.
func FingerprintStage() Stage {
	return Stage{
		Name:      StageFingerprint,
		Operation: "Fingerprinting files",
		Transform: func(ctx context.Context, _ library.Library, entry library.Entry) ([]library.Entry, error) {
			sum, err := fileutil.HashFile(ctx, entry.Path)
			if err != nil {
				switch {
				case services.IsCancellation(err):
					return nil, err
				case errors.Is(err, fs.ErrNotExist):
					return nil, nil
				}
				return nil, services.Wrap(services.ErrTransient, "scan", "fingerprint", entry.Path, err)
			}
			out := entry
			out.Fingerprint = sum
			return []library.Entry{out}, nil
		},
	}
}

// MergeStage passes through entries already merged at fan-in.
func MergeStage() Stage {
	return Stage{
		Name:      StageMerge,
		Operation: "Merging results",
		Transform: func(_ context.Context, _ library.Library, entry library.Entry) ([]library.Entry, error) {
			return []library.Entry{entry}, nil
		},
	}
}
