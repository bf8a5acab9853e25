package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"folio/internal/config"
	"folio/internal/events"
	"folio/internal/library"
	"folio/internal/logging"
	"folio/internal/notifications"
	"folio/internal/preflight"
	"folio/internal/scan"
	"folio/internal/services"
)

// ErrScanInProgress is returned when another process holds the library's scan lock.
var ErrScanInProgress = errors.New("scan already in progress")

// Service starts scans of registered libraries.
type Service struct {
	cfg      *config.Config
	store    *library.Store
	bus      *events.Bus
	notifier notifications.Service
	builder  *scan.Builder
	clock    clockwork.Clock
	logger   *slog.Logger
	newID    func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the clock used for progress throttling and durations.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithIDGenerator overrides scan id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New builds a scan service. Every event published on bus is written to the
// store's journal and to the log.
func New(cfg *config.Config, store *library.Store, bus *events.Bus, notifier notifications.Service, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if bus == nil {
		bus = events.NewBus(logger)
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	extra := make(map[library.ContentType][]string)
	for _, kind := range library.ContentTypes() {
		extra[kind] = cfg.ExtraExtensions(string(kind))
	}
	svc := &Service{
		cfg:      cfg,
		store:    store,
		bus:      bus,
		notifier: notifier,
		builder: scan.NewBuilder(scan.BuilderOptions{
			IncludeHidden:   cfg.Scan.IncludeHidden,
			ExtraExtensions: extra,
		}),
		clock:  clockwork.NewRealClock(),
		logger: logging.NewComponentLogger(logger, "scanner"),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(svc)
	}
	bus.Subscribe(events.JournalSink(store, logger))
	bus.Subscribe(events.LogSink(logger))
	return svc
}

// Bus returns the event bus scans publish to.
func (s *Service) Bus() *events.Bus {
	return s.bus
}

// Run is a scan in flight.
type Run struct {
	*scan.Scan
	Library library.Library

	svc      *Service
	lock     *flock.Flock
	once     sync.Once
	finalErr error
}

// Begin starts a scan of the library and returns without waiting for the
// pipeline. userID defaults to the library owner.
func (s *Service) Begin(ctx context.Context, libraryID int64, userID string) (*Run, error) {
	lib, err := s.store.GetLibrary(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	if err := preflight.FirstFailure(preflight.ScanChecks(s.cfg, lib)); err != nil {
		return nil, err
	}
	if err := s.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scanner", "prepare", "create data directories", err)
	}

	lock := flock.New(filepath.Join(s.cfg.LockDir(), fmt.Sprintf("library-%d.lock", lib.ID)))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire scan lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: library %q", ErrScanInProgress, lib.Name)
	}

	run, err := s.start(ctx, lib, userID, lock)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return run, nil
}

func (s *Service) start(ctx context.Context, lib library.Library, userID string, lock *flock.Flock) (*Run, error) {
	if userID = strings.TrimSpace(userID); userID == "" {
		userID = lib.OwnerID
	}
	key := scan.Key{ScanID: s.newID(), LibraryID: lib.ID, UserID: userID}
	ctx = services.WithScanID(ctx, key.ScanID)
	ctx = services.WithLibraryID(ctx, lib.ID)
	logger := logging.WithContext(ctx, s.logger)

	payload, err := Enumerate(ctx, lib.Root, s.cfg.Scan.IncludeHidden, logger)
	if err != nil {
		return nil, err
	}
	graph, err := s.builder.Build(lib.ContentType)
	if err != nil {
		return nil, err
	}
	logger.Info("library enumerated",
		logging.String(logging.FieldEventType, "enumerate_complete"),
		logging.String("library", lib.Name),
		logging.String("content_type", string(lib.ContentType)),
		logging.Int("files", len(payload)),
	)

	handle, err := scan.Start(ctx, graph, key, payload, scan.Dependencies{
		Scopes:           scan.StoreScopes(s.store),
		Publisher:        s.bus,
		Handoff:          s.store,
		Clock:            s.clock,
		ProgressInterval: s.cfg.ProgressInterval(),
		Workers:          s.cfg.ScanWorkers(),
		Logger:           s.logger,
	})
	if err != nil {
		if handle != nil {
			_ = handle.Wait(context.WithoutCancel(ctx))
		}
		return nil, err
	}
	return &Run{Scan: handle, Library: lib, svc: s, lock: lock}, nil
}

// Wait blocks until the pipeline finishes, then releases the library lock,
// publishes ScanCompleted on success, and sends notifications. If ctx ends
// first, Wait returns its error and the run stays active.
func (r *Run) Wait(ctx context.Context) error {
	err := r.Scan.Wait(ctx)
	if !r.Finished() {
		return err
	}
	r.once.Do(func() { r.finalErr = r.finish(err) })
	return r.finalErr
}

func (r *Run) finish(err error) error {
	s := r.svc
	ctx := services.WithScanID(context.Background(), r.Key().ScanID)
	logger := logging.WithContext(ctx, s.logger)
	if uerr := r.lock.Unlock(); uerr != nil {
		logger.Warn("failed to release scan lock", logging.Error(uerr))
	}

	switch {
	case err == nil:
		elapsed := r.Elapsed()
		s.bus.Publish(ctx, events.ScanCompleted{
			Key:       r.Key(),
			Items:     r.Items(),
			Duration:  elapsed.Round(time.Millisecond).String(),
			Timestamp: s.clock.Now(),
		})
		if nerr := s.notifier.NotifyScanCompleted(ctx, r.Library.Name, r.Items(), elapsed); nerr != nil {
			logger.Warn("scan notification failed", logging.Error(nerr))
		}
	case services.IsCancellation(err):
		logger.Info("scan canceled", logging.String(logging.FieldEventType, "scan_canceled"))
	default:
		if nerr := s.notifier.NotifyScanFailed(ctx, r.Library.Name, err); nerr != nil {
			logger.Warn("scan notification failed", logging.Error(nerr))
		}
	}
	return err
}

// Scan runs a scan to completion.
func (s *Service) Scan(ctx context.Context, libraryID int64, userID string) (*Run, error) {
	run, err := s.Begin(ctx, libraryID, userID)
	if err != nil {
		return nil, err
	}
	return run, run.Wait(context.WithoutCancel(ctx))
}
