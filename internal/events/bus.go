package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"folio/internal/logging"
)

// Publisher accepts events. Publication is best effort: callers never
// consult a result and nothing is retried.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Handler receives events delivered by a Bus.
type Handler func(ctx context.Context, ev Event)

// Bus delivers each published event to every subscriber in subscription
// order. Handlers run on the publishing goroutine and must be safe for
// concurrent use.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
	order    []int
	logger   *slog.Logger
}

// NewBus constructs an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bus{
		handlers: make(map[int]Handler),
		logger:   logging.NewComponentLogger(logger, "events"),
	}
}

// Subscribe registers h and returns a function removing it again.
func (b *Bus) Subscribe(h Handler) func() {
	if b == nil || h == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
			for i, existing := range b.order {
				if existing == id {
					b.order = append(b.order[:i:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish implements Publisher. A panicking handler is logged and does not
// stop delivery to the remaining handlers.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if b == nil || ev == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ctx, h, ev)
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(b.logger, "event handler panicked", "event_handler_panic",
				logging.String(logging.FieldErrorHint, "check the subscriber implementation"),
				logging.String("event", string(ev.EventType())),
				logging.Error(fmt.Errorf("panic: %v", r)),
			)
		}
	}()
	h(ctx, ev)
}

// Recorder is a Publisher that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of one kind.
func (r *Recorder) OfType(kind Type) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.EventType() == kind {
			out = append(out, ev)
		}
	}
	return out
}
