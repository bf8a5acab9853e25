package scan_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"folio/internal/events"
	"folio/internal/library"
	"folio/internal/scan"
	"folio/internal/services"
)

// fanInGraph builds src -> p0..pN-1 -> sink -> leaf.
func fanInGraph(t *testing.T, parents int, sinkCount, leafCount *atomic.Int32) *scan.Graph {
	t.Helper()
	var unused atomic.Int32
	stages := []scan.Stage{countingStage("src", &unused)}
	var edges [][2]string
	for i := 0; i < parents; i++ {
		name := fmt.Sprintf("p%d", i)
		stages = append(stages, countingStage(name, &unused))
		edges = append(edges, [2]string{"src", name}, [2]string{name, "sink"})
	}
	stages = append(stages, countingStage("sink", sinkCount), countingStage("leaf", leafCount))
	edges = append(edges, [2]string{"sink", "leaf"})
	g, err := scan.Assemble(stages, edges)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return g
}

func TestConcurrentParentArrivalsRunBodyOnce(t *testing.T) {
	for _, parents := range []int{1, 2, 5, 16} {
		t.Run(fmt.Sprintf("parents=%d", parents), func(t *testing.T) {
			var sinkCount, leafCount atomic.Int32
			g := fanInGraph(t, parents, &sinkCount, &leafCount)
			rec := &events.Recorder{}
			s, err := scan.NewScan(g, testKey, deps(newFakeScopes(library.ContentBooks, "/lib"), rec))
			if err != nil {
				t.Fatalf("NewScan: %v", err)
			}
			sink, _ := g.Lookup("sink")

			start := make(chan struct{})
			var wg sync.WaitGroup
			for _, parent := range sink.Parents {
				wg.Add(1)
				go func(parent int) {
					defer wg.Done()
					<-start
					if err := s.Execute(context.Background(), sink.ID, parent, entries("/lib/a.epub")); err != nil {
						t.Errorf("Execute from %d: %v", parent, err)
					}
				}(parent)
			}
			close(start)
			wg.Wait()

			if err := waitScan(t, s); err != nil {
				t.Fatalf("Wait: %v", err)
			}
			if got := sinkCount.Load(); got != 1 {
				t.Fatalf("sink transform ran %d times, want 1", got)
			}
			if got := leafCount.Load(); got != 1 {
				t.Fatalf("leaf transform ran %d times, want 1", got)
			}
			if got := countFor(rec, events.TypeScanProgress, "sink"); got != 1 {
				t.Fatalf("sink completed %d times, want 1", got)
			}
			statuses := s.Statuses()
			if statuses["sink"] != scan.StatusCompleted || statuses["leaf"] != scan.StatusCompleted {
				t.Fatalf("unexpected statuses %v", statuses)
			}
			if statuses["src"] != scan.StatusPending {
				t.Fatalf("src should not have run, got %s", statuses["src"])
			}
		})
	}
}

func TestDiamondRunsEveryNodeOncePerStart(t *testing.T) {
	var sinkCount, leafCount atomic.Int32
	g := fanInGraph(t, 2, &sinkCount, &leafCount)
	scopes := newFakeScopes(library.ContentBooks, "/lib")

	const runs = 25
	for i := 0; i < runs; i++ {
		rec := &events.Recorder{}
		s, err := scan.Start(context.Background(), g, testKey, entries("/lib/a.epub", "/lib/b.epub"), deps(scopes, rec))
		if err != nil {
			t.Fatalf("run %d: Start: %v", i, err)
		}
		if err := waitScan(t, s); err != nil {
			t.Fatalf("run %d: Wait: %v", i, err)
		}
		for name, status := range s.Statuses() {
			if status != scan.StatusCompleted {
				t.Fatalf("run %d: %s status %s", i, name, status)
			}
			if got := countFor(rec, events.TypeScanProgress, name); got != 1 {
				t.Fatalf("run %d: %s completed %d times", i, name, got)
			}
		}
	}
	if got := sinkCount.Load(); got != 2*runs {
		t.Fatalf("sink processed %d entries, want %d", got, 2*runs)
	}
	if got := leafCount.Load(); got != 2*runs {
		t.Fatalf("leaf processed %d entries, want %d", got, 2*runs)
	}
	if opened, closed := scopes.opened.Load(), scopes.closed.Load(); opened != closed || opened != int32(5*runs) {
		t.Fatalf("scopes opened %d closed %d, want %d each", opened, closed, 5*runs)
	}
}

func TestRootRunsOncePerStart(t *testing.T) {
	var rootCount atomic.Int32
	g, err := scan.Assemble([]scan.Stage{countingStage("root", &rootCount)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := &events.Recorder{}
	s, err := scan.Start(context.Background(), g, testKey, entries("/lib/a.epub"), deps(newFakeScopes(library.ContentBooks, "/lib"), rec))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	root := g.Roots()[0]
	if err := s.Execute(context.Background(), root, scan.NoParent, entries("/lib/a.epub")); !errors.Is(err, scan.ErrRejectedArrival) {
		t.Fatalf("second root invocation: expected ErrRejectedArrival, got %v", err)
	}
	if err := waitScan(t, s); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := rootCount.Load(); got != 1 {
		t.Fatalf("root transform ran %d times, want 1", got)
	}
}

func TestOvershootArrivalsAreRejected(t *testing.T) {
	var sinkCount, leafCount atomic.Int32
	g := fanInGraph(t, 2, &sinkCount, &leafCount)
	s, err := scan.NewScan(g, testKey, deps(newFakeScopes(library.ContentBooks, "/lib"), &events.Recorder{}))
	if err != nil {
		t.Fatalf("NewScan: %v", err)
	}
	sink, _ := g.Lookup("sink")
	leaf, _ := g.Lookup("leaf")
	ctx := context.Background()

	if err := s.Execute(ctx, sink.ID, sink.Parents[0], entries("/lib/a.epub")); err != nil {
		t.Fatalf("first arrival: %v", err)
	}
	if err := s.Execute(ctx, sink.ID, sink.Parents[0], entries("/lib/a.epub")); !errors.Is(err, scan.ErrRejectedArrival) {
		t.Fatalf("duplicate arrival: expected ErrRejectedArrival, got %v", err)
	}
	if err := s.Execute(ctx, sink.ID, leaf.ID, entries("/lib/a.epub")); !errors.Is(err, scan.ErrRejectedArrival) {
		t.Fatalf("non-parent arrival: expected ErrRejectedArrival, got %v", err)
	}
	if err := s.Execute(ctx, sink.ID, scan.NoParent, nil); !errors.Is(err, scan.ErrRejectedArrival) {
		t.Fatalf("parentless arrival at inner node: expected ErrRejectedArrival, got %v", err)
	}
	if sink.Status() != scan.StatusPending {
		t.Fatalf("sink must wait for its second parent, status %s", sink.Status())
	}
	if err := s.Execute(ctx, sink.ID, sink.Parents[1], entries("/lib/b.epub")); err != nil {
		t.Fatalf("second arrival: %v", err)
	}
	if err := waitScan(t, s); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := sinkCount.Load(); got != 2 {
		t.Fatalf("sink processed %d merged entries, want 2", got)
	}
}

func TestFilterNodeScenario(t *testing.T) {
	var childCount atomic.Int32
	stages := []scan.Stage{scan.FilterStage(nil), countingStage("collect", &childCount)}
	g, err := scan.Assemble(stages, [][2]string{{scan.StageFilter, "collect"}})
	if err != nil {
		t.Fatal(err)
	}
	rec := &events.Recorder{}
	handoff := &recordingHandoff{}
	d := deps(newFakeScopes(library.ContentBooks, "/lib"), rec)
	d.Handoff = handoff

	payload := entries(
		"/lib/1.epub", "/lib/2.pdf", "/lib/3.mobi", "/lib/4.jpg", "/lib/5.epub",
		"/lib/6.nfo", "/lib/7.azw3", "/lib/8.mkv", "/lib/9.txt", "/lib/10.db",
	)
	s, err := scan.Start(context.Background(), g, testKey, payload, d)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := waitScan(t, s); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	filter := progressFor(rec, scan.StageFilter)
	if len(filter) < 2 {
		t.Fatalf("expected at least initial and final progress, got %v", filter)
	}
	first, last := filter[0].Progress, filter[len(filter)-1].Progress
	if first.Completed != 0 || first.Total != 10 {
		t.Fatalf("initial progress = %+v, want 0/10", first)
	}
	if last.Completed != 10 || last.Total != 10 {
		t.Fatalf("final progress = %+v, want 10/10", last)
	}
	for i := 1; i < len(filter); i++ {
		if filter[i].Progress.Completed < filter[i-1].Progress.Completed {
			t.Fatalf("progress went backwards: %v", filter)
		}
	}

	if got := childCount.Load(); got != 6 {
		t.Fatalf("child processed %d entries, want 6", got)
	}
	if got := countFor(rec, events.TypeScanProgress, "collect"); got != 1 {
		t.Fatalf("child completed %d times, want 1", got)
	}
	collect := progressFor(rec, "collect")
	if len(collect) == 0 || collect[0].Progress.Total != 6 {
		t.Fatalf("child should start with a 6-item payload, got %v", collect)
	}
	calls := handoff.Calls()
	if len(calls) != 1 || len(calls[0]) != 6 {
		t.Fatalf("handoff calls = %v", calls)
	}
	if s.Items() != 6 {
		t.Fatalf("Items = %d, want 6", s.Items())
	}
}

func TestThrottledProgressRespectsInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	const interval = 100 * time.Millisecond
	stage := scan.Stage{
		Name:      "slow",
		Operation: "Working",
		Transform: func(_ context.Context, _ library.Library, entry library.Entry) ([]library.Entry, error) {
			clock.Advance(30 * time.Millisecond)
			return []library.Entry{entry}, nil
		},
	}
	g, err := scan.Assemble([]scan.Stage{stage}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := &events.Recorder{}
	d := deps(newFakeScopes(library.ContentBooks, "/lib"), rec)
	d.Clock = clock
	d.ProgressInterval = interval

	payload := make([]library.Entry, 40)
	for i := range payload {
		payload[i] = library.Entry{Path: fmt.Sprintf("/lib/%02d.epub", i)}
	}
	s, err := scan.Start(context.Background(), g, testKey, payload, d)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := waitScan(t, s); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	progress := progressFor(rec, "slow")
	if progress[0].Progress.Completed != 0 || progress[len(progress)-1].Progress.Completed != 40 {
		t.Fatalf("missing initial or final progress: %v", progress)
	}
	var intermediate []events.JobProgressChanged
	for _, p := range progress {
		if p.Progress.Completed > 0 && p.Progress.Completed < p.Progress.Total {
			intermediate = append(intermediate, p)
		}
	}
	if len(intermediate) == 0 {
		t.Fatal("expected throttled intermediate progress")
	}
	if len(intermediate) >= 39 {
		t.Fatalf("throttle let through %d of 39 intermediate updates", len(intermediate))
	}
	for i := 1; i < len(intermediate); i++ {
		if gap := intermediate[i].Timestamp.Sub(intermediate[i-1].Timestamp); gap < interval {
			t.Fatalf("intermediate updates %d and %d only %v apart", i-1, i, gap)
		}
	}
}

func TestLibraryNotFoundFailsBranch(t *testing.T) {
	var childCount atomic.Int32
	stages := []scan.Stage{scan.FilterStage(nil), countingStage("collect", &childCount)}
	g, err := scan.Assemble(stages, [][2]string{{scan.StageFilter, "collect"}})
	if err != nil {
		t.Fatal(err)
	}
	scopes := newFakeScopes(library.ContentBooks, "/lib")
	scopes.err = services.Wrap(services.ErrNotFound, "library", "lookup", "library 1 does not exist", nil)
	rec := &events.Recorder{}

	s, err := scan.Start(context.Background(), g, testKey, entries("/lib/a.epub"), deps(scopes, rec))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	err = waitScan(t, s)
	if !errors.Is(err, scan.ErrBranchFailed) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected branch failure wrapping ErrNotFound, got %v", err)
	}
	failed := rec.OfType(events.TypeScanFailed)
	if len(failed) != 1 {
		t.Fatalf("expected exactly one ScanFailed, got %d", len(failed))
	}
	if ev := failed[0].(events.ScanFailed); ev.Node != scan.StageFilter || ev.ScanKey() != testKey {
		t.Fatalf("unexpected ScanFailed %+v", ev)
	}
	if childCount.Load() != 0 || len(progressFor(rec, "collect")) != 0 {
		t.Fatal("failed node must not fan out")
	}
	statuses := s.Statuses()
	if statuses[scan.StageFilter] != scan.StatusFailed || statuses["collect"] != scan.StatusPending {
		t.Fatalf("unexpected statuses %v", statuses)
	}
}

func TestConversionFailureFailsBranch(t *testing.T) {
	var n atomic.Int32
	g, err := scan.Assemble([]scan.Stage{countingStage("only", &n)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	scopes := newFakeScopes(library.ContentBooks, "/lib")
	scopes.err = services.Wrap(services.ErrConversion, "library", "map row", "bad content type", nil)
	rec := &events.Recorder{}
	s, err := scan.Start(context.Background(), g, testKey, entries("/lib/a.epub"), deps(scopes, rec))
	if err != nil {
		t.Fatal(err)
	}
	if err := waitScan(t, s); !errors.Is(err, services.ErrConversion) {
		t.Fatalf("expected ErrConversion, got %v", err)
	}
	if len(rec.OfType(events.TypeScanFailed)) != 1 || n.Load() != 0 {
		t.Fatal("expected one ScanFailed and no processing")
	}
}

func TestPreCanceledContextCancelsBeforeProcessing(t *testing.T) {
	var rootCount, childCount atomic.Int32
	g, err := scan.Assemble(
		[]scan.Stage{countingStage("root", &rootCount), countingStage("child", &childCount)},
		[][2]string{{"root", "child"}},
	)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &events.Recorder{}
	s, err := scan.Start(ctx, g, testKey, entries("/lib/a.epub", "/lib/b.epub"), deps(newFakeScopes(library.ContentBooks, "/lib"), rec))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := waitScan(t, s); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if rootCount.Load() != 0 || childCount.Load() != 0 {
		t.Fatalf("processed root=%d child=%d items, want 0", rootCount.Load(), childCount.Load())
	}
	statuses := s.Statuses()
	if statuses["root"] != scan.StatusCanceled || statuses["child"] != scan.StatusPending {
		t.Fatalf("unexpected statuses %v", statuses)
	}
	if len(rec.OfType(events.TypeScanFailed)) != 0 {
		t.Fatal("cancellation must not publish ScanFailed")
	}
}

func TestCancellationDuringLoopStopsNode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var processed atomic.Int32
	stage := scan.Stage{
		Name: "cancels",
		Transform: func(_ context.Context, _ library.Library, entry library.Entry) ([]library.Entry, error) {
			if processed.Add(1) == 3 {
				cancel()
			}
			return []library.Entry{entry}, nil
		},
	}
	g, err := scan.Assemble([]scan.Stage{stage}, nil)
	if err != nil {
		t.Fatal(err)
	}
	handoff := &recordingHandoff{}
	d := deps(newFakeScopes(library.ContentBooks, "/lib"), &events.Recorder{})
	d.Handoff = handoff
	s, err := scan.Start(ctx, g, testKey, entries("/a", "/b", "/c", "/d", "/e"), d)
	if err != nil {
		t.Fatal(err)
	}
	if err := waitScan(t, s); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := processed.Load(); got != 3 {
		t.Fatalf("processed %d items, want 3", got)
	}
	if s.Statuses()["cancels"] != scan.StatusCanceled {
		t.Fatalf("status = %s", s.Statuses()["cancels"])
	}
	if len(handoff.Calls()) != 0 {
		t.Fatal("canceled node must not hand off")
	}
}

func TestEmptyPayloadCompletesWithoutJobProgress(t *testing.T) {
	var rootCount, childCount atomic.Int32
	g, err := scan.Assemble(
		[]scan.Stage{countingStage("root", &rootCount), countingStage("child", &childCount)},
		[][2]string{{"root", "child"}},
	)
	if err != nil {
		t.Fatal(err)
	}
	rec := &events.Recorder{}
	handoff := &recordingHandoff{}
	d := deps(newFakeScopes(library.ContentBooks, "/lib"), rec)
	d.Handoff = handoff
	s, err := scan.Start(context.Background(), g, testKey, nil, d)
	if err != nil {
		t.Fatal(err)
	}
	if err := waitScan(t, s); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n := len(rec.OfType(events.TypeJobProgress)); n != 0 {
		t.Fatalf("expected no job progress for empty payload, got %d", n)
	}
	if countFor(rec, events.TypeScanProgress, "root") != 1 || countFor(rec, events.TypeScanProgress, "child") != 1 {
		t.Fatal("both nodes should report completion")
	}
	if len(handoff.Calls()) != 1 {
		t.Fatal("terminal node should hand off the empty payload")
	}
}

func TestFailedBranchDoesNotCancelSiblings(t *testing.T) {
	var okCount, mergeCount atomic.Int32
	boom := errors.New("disk read failed")
	failing := scan.Stage{
		Name: "broken",
		Transform: func(context.Context, library.Library, library.Entry) ([]library.Entry, error) {
			return nil, services.Wrap(services.ErrTransient, "test", "broken", "", boom)
		},
	}
	var rootCount atomic.Int32
	g, err := scan.Assemble(
		[]scan.Stage{countingStage("root", &rootCount), failing, countingStage("healthy", &okCount), countingStage("join", &mergeCount)},
		[][2]string{{"root", "broken"}, {"root", "healthy"}, {"broken", "join"}, {"healthy", "join"}},
	)
	if err != nil {
		t.Fatal(err)
	}
	rec := &events.Recorder{}
	s, err := scan.Start(context.Background(), g, testKey, entries("/a", "/b"), deps(newFakeScopes(library.ContentBooks, "/lib"), rec))
	if err != nil {
		t.Fatal(err)
	}
	err = waitScan(t, s)
	if !errors.Is(err, scan.ErrBranchFailed) || !errors.Is(err, boom) {
		t.Fatalf("expected branch failure wrapping cause, got %v", err)
	}
	statuses := s.Statuses()
	if statuses["broken"] != scan.StatusFailed || statuses["healthy"] != scan.StatusCompleted || statuses["join"] != scan.StatusPending {
		t.Fatalf("unexpected statuses %v", statuses)
	}
	if okCount.Load() != 2 || mergeCount.Load() != 0 {
		t.Fatalf("healthy=%d join=%d", okCount.Load(), mergeCount.Load())
	}
	if len(rec.OfType(events.TypeScanFailed)) != 1 {
		t.Fatal("expected one ScanFailed")
	}
}

func TestHandoffFailureFailsTerminalNode(t *testing.T) {
	var n atomic.Int32
	g, err := scan.Assemble([]scan.Stage{countingStage("only", &n)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := &events.Recorder{}
	d := deps(newFakeScopes(library.ContentBooks, "/lib"), rec)
	d.Handoff = &recordingHandoff{err: errors.New("database is read-only")}
	s, err := scan.Start(context.Background(), g, testKey, entries("/a"), d)
	if err != nil {
		t.Fatal(err)
	}
	if err := waitScan(t, s); !errors.Is(err, scan.ErrBranchFailed) {
		t.Fatalf("expected ErrBranchFailed, got %v", err)
	}
	if s.Statuses()["only"] != scan.StatusFailed {
		t.Fatalf("status = %s", s.Statuses()["only"])
	}
	if countFor(rec, events.TypeScanProgress, "only") != 0 || len(rec.OfType(events.TypeScanFailed)) != 1 {
		t.Fatal("handoff failure must fail the node instead of completing it")
	}
	if s.Items() != 0 {
		t.Fatalf("Items = %d, want 0", s.Items())
	}
}

func TestWorkerPoolBoundsConcurrentBodies(t *testing.T) {
	var (
		active, peak atomic.Int32
		rootCount    atomic.Int32
	)
	busy := func(name string) scan.Stage {
		return scan.Stage{
			Name: name,
			Transform: func(_ context.Context, _ library.Library, entry library.Entry) ([]library.Entry, error) {
				now := active.Add(1)
				for {
					old := peak.Load()
					if now <= old || peak.CompareAndSwap(old, now) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				active.Add(-1)
				return []library.Entry{entry}, nil
			},
		}
	}
	stages := []scan.Stage{countingStage("root", &rootCount), busy("a"), busy("b"), busy("c"), busy("d")}
	edges := [][2]string{{"root", "a"}, {"root", "b"}, {"root", "c"}, {"root", "d"}}
	g, err := scan.Assemble(stages, edges)
	if err != nil {
		t.Fatal(err)
	}
	d := deps(newFakeScopes(library.ContentBooks, "/lib"), &events.Recorder{})
	d.Workers = 2
	s, err := scan.Start(context.Background(), g, testKey, entries("/a", "/b", "/c"), d)
	if err != nil {
		t.Fatal(err)
	}
	if err := waitScan(t, s); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := peak.Load(); got > 2 {
		t.Fatalf("peak concurrency %d exceeds worker pool of 2", got)
	}
}

func TestGraphCannotStartTwiceConcurrently(t *testing.T) {
	var n atomic.Int32
	g, err := scan.Assemble([]scan.Stage{countingStage("only", &n)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	d := deps(newFakeScopes(library.ContentBooks, "/lib"), &events.Recorder{})
	s, err := scan.NewScan(g, testKey, d)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := scan.NewScan(g, testKey, d); !errors.Is(err, scan.ErrGraphBusy) {
		t.Fatalf("expected ErrGraphBusy, got %v", err)
	}
	if err := waitScan(t, s); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if _, err := scan.NewScan(g, testKey, d); err != nil {
		t.Fatalf("graph should be reusable after Wait: %v", err)
	}
}
