package events

import (
	"context"
	"log/slog"
	"sync"

	"folio/internal/logging"
)

// LogSink returns a handler that writes events to logger. Intermediate job
// progress is sampled per node so large scans do not flood the log; the
// first and final update of every node are always written.
func LogSink(logger *slog.Logger) Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "scan")
	var (
		mu       sync.Mutex
		samplers = make(map[string]*logging.ProgressSampler)
	)
	shouldLog := func(key Key, node string, percent float64) bool {
		mu.Lock()
		defer mu.Unlock()
		id := key.ScanID + "/" + node
		sampler, ok := samplers[id]
		if !ok {
			sampler = logging.NewProgressSampler(25)
			samplers[id] = sampler
		}
		return sampler.ShouldLog(node, percent)
	}
	forget := func(key Key, node string) {
		mu.Lock()
		delete(samplers, key.ScanID+"/"+node)
		mu.Unlock()
	}

	return func(_ context.Context, ev Event) {
		key := ev.ScanKey()
		base := []logging.Attr{
			logging.String(logging.FieldScanID, key.ScanID),
			logging.Int64(logging.FieldLibraryID, key.LibraryID),
		}
		switch v := ev.(type) {
		case JobProgressChanged:
			p := v.Progress
			if p.Completed > 0 && p.Completed < p.Total && !shouldLog(key, v.Node, p.Percent()) {
				return
			}
			logger.Info("node progress", logging.Args(append(base,
				logging.String(logging.FieldNode, v.Node),
				logging.String(logging.FieldEventType, "node_progress"),
				logging.String("operation", p.Operation),
				logging.Int("completed", p.Completed),
				logging.Int("total", p.Total),
			)...)...)
		case ScanProgressChanged:
			forget(key, v.Node)
			logger.Info("node completed", logging.Args(append(base,
				logging.String(logging.FieldNode, v.Node),
				logging.String(logging.FieldEventType, "node_complete"),
			)...)...)
		case ScanFailed:
			forget(key, v.Node)
			logging.ErrorWithContext(logger, "scan branch failed", "node_failed", append(base,
				logging.String(logging.FieldNode, v.Node),
				logging.String("reason", v.Reason),
				logging.String(logging.FieldErrorHint, "inspect the library record and rerun the scan"),
			)...)
		case ScanCompleted:
			logger.Info("scan completed", logging.Args(append(base,
				logging.String(logging.FieldEventType, "scan_complete"),
				logging.Int("items", v.Items),
				logging.String("duration", v.Duration),
			)...)...)
		}
	}
}

// Journal persists events.
type Journal interface {
	AppendEvent(ctx context.Context, ev Event) error
}

// JournalSink returns a handler that appends every event to journal. Append
// failures are logged and dropped.
func JournalSink(journal Journal, logger *slog.Logger) Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "events")
	return func(ctx context.Context, ev Event) {
		if journal == nil {
			return
		}
		// A canceled scan still records its final events.
		if err := journal.AppendEvent(context.WithoutCancel(ctx), ev); err != nil {
			logging.WarnWithContext(logger, "event journal append failed", "journal_append_failed",
				logging.String(logging.FieldScanID, ev.ScanKey().ScanID),
				logging.String("event", string(ev.EventType())),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the data directory is writable"),
				logging.String(logging.FieldImpact, "event missing from scan history"),
			)
		}
	}
}
