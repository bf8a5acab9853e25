package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/semaphore"

	"folio/internal/events"
	"folio/internal/library"
	"folio/internal/logging"
)

// Dependencies are the collaborators shared by every node of a scan.
type Dependencies struct {
	Scopes    ScopeFactory
	Publisher events.Publisher
	// Handoff receives terminal node output. Nil discards it.
	Handoff Handoff
	Clock   clockwork.Clock
	// ProgressInterval is the throttle interval; zero means DefaultProgressInterval.
	ProgressInterval time.Duration
	// Workers bounds concurrently running node bodies; zero means one per CPU.
	Workers int
	Logger  *slog.Logger
}

// Scan is the handle of one pipeline run over a Graph.
type Scan struct {
	key       Key
	graph     *Graph
	deps      Dependencies
	logger    *slog.Logger
	sem       *semaphore.Weighted
	wg        sync.WaitGroup
	failures  *xsync.MapOf[string, error]
	cancelErr atomic.Pointer[error]
	items     atomic.Int64
	started   time.Time
	done      chan struct{}
	closeOnce sync.Once
}

// NewScan validates and resets g and prepares a run keyed by key. No node
// runs until Execute is called.
func NewScan(g *Graph, key Key, deps Dependencies) (*Scan, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrInvalidGraph)
	}
	if deps.Scopes == nil {
		return nil, errors.New("scan: scope factory is required")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if !g.running.CompareAndSwap(false, true) {
		return nil, ErrGraphBusy
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewBus(nil)
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.ProgressInterval == 0 {
		deps.ProgressInterval = DefaultProgressInterval
	}
	if deps.Workers <= 0 {
		deps.Workers = runtime.NumCPU()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}

	g.reset()
	return &Scan{
		key:      key,
		graph:    g,
		deps:     deps,
		logger:   logging.NewComponentLogger(deps.Logger, "scan"),
		sem:      semaphore.NewWeighted(int64(deps.Workers)),
		failures: xsync.NewMapOf[string, error](),
		started:  deps.Clock.Now(),
		done:     make(chan struct{}),
	}, nil
}

// Start builds a run over g and invokes every root with payload. It returns
// without waiting for the pipeline; use Wait to observe the outcome.
func Start(ctx context.Context, g *Graph, key Key, payload []library.Entry, deps Dependencies) (*Scan, error) {
	s, err := NewScan(g, key, deps)
	if err != nil {
		return nil, err
	}
	s.logger.Info("scan started",
		logging.String(logging.FieldScanID, key.ScanID),
		logging.Int64(logging.FieldLibraryID, key.LibraryID),
		logging.String(logging.FieldEventType, "scan_start"),
		logging.Int("entries", len(payload)),
		logging.Int("nodes", g.Len()),
	)
	for _, root := range g.Roots() {
		if err := s.Execute(ctx, root, NoParent, cloneEntries(payload)); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Key returns the scan key.
func (s *Scan) Key() Key {
	return s.key
}

// Graph returns the graph being executed.
func (s *Scan) Graph() *Graph {
	return s.graph
}

// Items returns the number of entries handed to terminal handoffs.
func (s *Scan) Items() int {
	return int(s.items.Load())
}

// Elapsed returns the time since the scan was created.
func (s *Scan) Elapsed() time.Duration {
	return s.deps.Clock.Since(s.started)
}

// Statuses returns the current status of every node keyed by stage name.
func (s *Scan) Statuses() map[string]Status {
	out := make(map[string]Status, s.graph.Len())
	for _, n := range s.graph.nodes {
		out[n.Name] = n.Status()
	}
	return out
}

// Wait blocks until every dispatched node body has returned, or ctx ends.
// It returns the cancellation error if any node was canceled, otherwise the
// failures of every failed node wrapped with ErrBranchFailed, otherwise nil.
func (s *Scan) Wait(ctx context.Context) error {
	s.closeOnce.Do(func() {
		go func() {
			s.wg.Wait()
			s.graph.running.Store(false)
			close(s.done)
		}()
	})
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.outcome()
}

// Finished reports whether a Wait has observed every node body return.
func (s *Scan) Finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Scan) outcome() error {
	if errp := s.cancelErr.Load(); errp != nil {
		return *errp
	}
	var result *multierror.Error
	for _, n := range s.graph.nodes {
		if err, ok := s.failures.Load(n.Name); ok {
			result = multierror.Append(result, fmt.Errorf("%w: %s: %w", ErrBranchFailed, n.Name, err))
		}
	}
	return result.ErrorOrNil()
}

func (s *Scan) recordCancel(err error) {
	s.cancelErr.CompareAndSwap(nil, &err)
}

func cloneEntries(entries []library.Entry) []library.Entry {
	if entries == nil {
		return nil
	}
	out := make([]library.Entry, len(entries))
	copy(out, entries)
	return out
}
