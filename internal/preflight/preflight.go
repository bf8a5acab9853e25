package preflight

import (
	"context"
	"fmt"
	"strings"

	"folio/internal/config"
	"folio/internal/library"
	"folio/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config and
// registered libraries.
func RunAll(ctx context.Context, cfg *config.Config, libs []library.Library) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Data directory", cfg.Paths.DataDir)}
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	for _, lib := range libs {
		results = append(results, CheckLibraryRoot(lib))
	}
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		results = append(results, CheckNtfy(ctx, topic))
	}
	return results
}

// ScanChecks runs the checks a scan of lib depends on.
func ScanChecks(cfg *config.Config, lib library.Library) []Result {
	return []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckLibraryRoot(lib),
	}
}

// FirstFailure converts the first failed result into a configuration error.
func FirstFailure(results []Result) error {
	for _, r := range results {
		if !r.Passed {
			return services.Wrap(services.ErrConfiguration, "preflight", r.Name, r.Detail, nil)
		}
	}
	return nil
}

// CheckLibraryRoot verifies a library root can be listed.
func CheckLibraryRoot(lib library.Library) Result {
	return CheckDirectoryReadable(fmt.Sprintf("Library %q", lib.Name), lib.Root)
}
