package scanner

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"

	"folio/internal/fileutil"
	"folio/internal/library"
	"folio/internal/logging"
	"folio/internal/services"
)

// Enumerate walks root and returns one entry per regular file. Hidden
// directories are skipped unless includeHidden is set; unreadable
// subdirectories are logged and skipped.
func Enumerate(ctx context.Context, root string, includeHidden bool, logger *slog.Logger) ([]library.Entry, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var entries []library.Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			logging.WarnWithContext(logger, "skipping unreadable path", "enumerate_skip",
				logging.String("path", path),
				logging.Error(walkErr),
				logging.String(logging.FieldErrorHint, "check permissions under the library root"),
				logging.String(logging.FieldImpact, "files below this path are not cataloged"),
			)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			if !includeHidden && fileutil.IsHidden(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		entries = append(entries, library.Entry{Path: path, Name: d.Name()})
		return nil
	})
	if err != nil {
		if services.IsCancellation(err) {
			return nil, err
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "scanner", "enumerate", root, err)
		}
		return nil, services.Wrap(services.ErrTransient, "scanner", "enumerate", root, err)
	}
	return entries, nil
}
