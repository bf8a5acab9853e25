package scan

import (
	"context"
	"fmt"
	"log/slog"

	"folio/internal/events"
	"folio/internal/library"
	"folio/internal/logging"
	"folio/internal/services"
)

// Execute delivers payload to node id on behalf of parent from (NoParent for
// roots). Only the arrival that completes the node's fan-in dispatches the
// body, which runs on its own goroutine; Execute never waits for it. The
// returned error reports a rejected arrival and is also logged.
func (s *Scan) Execute(ctx context.Context, id, from int, payload []library.Entry) error {
	n := s.graph.Node(id)
	if n == nil {
		return fmt.Errorf("%w: unknown node %d", ErrInvalidGraph, id)
	}
	ready, input, err := n.arrive(from, payload)
	if err != nil {
		logging.WarnWithContext(s.logger, "fan-in arrival rejected", "fan_in_rejected",
			logging.String(logging.FieldScanID, s.key.ScanID),
			logging.String(logging.FieldNode, n.Name),
			logging.Int("from", from),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "a parent invoked this node more than once"),
			logging.String(logging.FieldImpact, "arrival ignored"),
		)
		return err
	}
	if !ready {
		return nil
	}
	if err := n.transition(StatusRunning); err != nil {
		logging.WarnWithContext(s.logger, "node already started", "node_restart_rejected",
			logging.String(logging.FieldScanID, s.key.ScanID),
			logging.String(logging.FieldNode, n.Name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "arrival ignored"),
		)
		return fmt.Errorf("%w: %w", ErrRejectedArrival, err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx, n, input)
	}()
	return nil
}

func (s *Scan) run(ctx context.Context, n *Node, input []library.Entry) {
	ctx = services.WithScanID(ctx, s.key.ScanID)
	ctx = services.WithLibraryID(ctx, s.key.LibraryID)
	ctx = services.WithNode(ctx, n.Name)
	logger := logging.WithContext(ctx, s.logger)

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.cancel(logger, n, err)
		return
	}
	defer s.sem.Release(1)

	start := s.deps.Clock.Now()
	logger.Debug("node started",
		logging.String(logging.FieldEventType, "node_start"),
		logging.Int("entries", len(input)),
	)

	scope, err := s.deps.Scopes.OpenScope(ctx)
	if err != nil {
		s.settle(ctx, logger, n, services.Wrap(services.ErrTransient, "scan", "open scope", n.Name, err))
		return
	}
	defer func() {
		if cerr := scope.Close(); cerr != nil {
			logger.Debug("scope close failed", logging.Error(cerr))
		}
	}()

	lib, err := scope.LookupLibrary(ctx, s.key.LibraryID)
	if err != nil {
		s.settle(ctx, logger, n, err)
		return
	}

	output, err := s.transform(ctx, n, lib, input)
	if err != nil {
		s.settle(ctx, logger, n, err)
		return
	}

	if len(n.Children) == 0 {
		if s.deps.Handoff != nil {
			if err := s.deps.Handoff.PersistEntries(ctx, s.key, output); err != nil {
				s.settle(ctx, logger, n, services.Wrap(services.ErrTransient, "scan", "handoff", n.Name, err))
				return
			}
		}
		s.items.Add(int64(len(output)))
	}

	s.deps.Publisher.Publish(ctx, events.ScanProgressChanged{
		Key:       s.key,
		Node:      n.Name,
		Timestamp: s.deps.Clock.Now(),
	})
	if err := n.transition(StatusCompleted); err != nil {
		logger.Error("node completion rejected", logging.Error(err))
		return
	}
	logger.Info("node completed",
		logging.String(logging.FieldEventType, "node_complete"),
		logging.Int("entries_in", len(input)),
		logging.Int("entries_out", len(output)),
		logging.Duration("node_duration", s.deps.Clock.Since(start)),
	)

	for _, child := range n.Children {
		_ = s.Execute(ctx, child, n.ID, cloneEntries(output))
	}
}

// transform applies the node's stage to every input entry, publishing the
// initial and final progress unconditionally and intermediate progress
// through the throttler.
func (s *Scan) transform(ctx context.Context, n *Node, lib library.Library, input []library.Entry) ([]library.Entry, error) {
	total := len(input)
	if total == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	initial, err := NewProgress(0, total, n.operation)
	if err != nil {
		return nil, err
	}
	throttler := NewThrottler(s.deps.Clock, s.deps.ProgressInterval, func(p Progress) {
		s.deps.Publisher.Publish(ctx, events.JobProgressChanged{
			Key:       s.key,
			Node:      n.Name,
			Progress:  p.Snapshot(),
			Timestamp: s.deps.Clock.Now(),
		})
	})
	throttler.Always(initial)

	output := make([]library.Entry, 0, total)
	for i, entry := range input {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := n.transform(ctx, lib, entry)
		if err != nil {
			return nil, err
		}
		output = append(output, out...)

		progress, err := NewProgress(i+1, total, n.operation)
		if err != nil {
			return nil, err
		}
		if progress.Done() {
			throttler.Always(progress)
		} else {
			throttler.Try(progress)
		}
	}
	return output, nil
}

// settle records err as the node outcome: cancellation moves the node to
// canceled, anything else fails the branch.
func (s *Scan) settle(ctx context.Context, logger *slog.Logger, n *Node, err error) {
	if services.IsCancellation(err) {
		s.cancel(logger, n, err)
		return
	}
	s.fail(ctx, logger, n, err)
}

func (s *Scan) cancel(logger *slog.Logger, n *Node, err error) {
	if terr := n.transition(StatusCanceled); terr != nil {
		logger.Debug("cancel transition rejected", logging.Error(terr))
	}
	s.recordCancel(err)
	logger.Info("node canceled",
		logging.String(logging.FieldEventType, "node_canceled"),
		logging.Error(err),
	)
}

func (s *Scan) fail(ctx context.Context, logger *slog.Logger, n *Node, err error) {
	if terr := n.transition(StatusFailed); terr != nil {
		logger.Debug("fail transition rejected", logging.Error(terr))
	}
	s.failures.Store(n.Name, err)
	logging.ErrorWithContext(logger, "node failed", "node_failed",
		logging.String(logging.FieldErrorKind, string(services.ErrorKind(err))),
		logging.String(logging.FieldErrorHint, failureHint(err)),
		logging.Error(err),
	)
	s.deps.Publisher.Publish(ctx, events.ScanFailed{
		Key:       s.key,
		Node:      n.Name,
		Reason:    err.Error(),
		Timestamp: s.deps.Clock.Now(),
	})
}

func failureHint(err error) string {
	switch services.ErrorKind(err) {
	case services.KindNotFound:
		return "the library was removed; re-add it or drop the scan"
	case services.KindConversion:
		return "the library record is corrupt; remove and re-add the library"
	case services.KindValidation:
		return "progress bookkeeping rejected a value; report this scan id"
	default:
		return "check file permissions under the library root and rerun the scan"
	}
}
