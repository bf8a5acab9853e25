package scan

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultProgressInterval is the minimum gap between intermediate progress events.
const DefaultProgressInterval = 100 * time.Millisecond

// Throttler gates progress publication to at most one intermediate update per
// interval. It belongs to a single node execution and is not safe for
// concurrent use.
type Throttler struct {
	clock       clockwork.Clock
	interval    time.Duration
	publish     func(Progress)
	lastPublish time.Time
}

// NewThrottler builds a throttler that forwards accepted updates to publish.
func NewThrottler(clock clockwork.Clock, interval time.Duration, publish func(Progress)) *Throttler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval < 0 {
		interval = DefaultProgressInterval
	}
	return &Throttler{clock: clock, interval: interval, publish: publish}
}

// Always publishes p regardless of elapsed time. Use it for the first and
// final update of a run.
func (t *Throttler) Always(p Progress) {
	t.publish(p)
	t.lastPublish = t.clock.Now()
}

// Try publishes p only when the interval has elapsed since the last
// publication. It reports whether p was published.
func (t *Throttler) Try(p Progress) bool {
	now := t.clock.Now()
	if !t.lastPublish.IsZero() && now.Sub(t.lastPublish) < t.interval {
		return false
	}
	t.publish(p)
	t.lastPublish = now
	return true
}
