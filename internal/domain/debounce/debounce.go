// Package debounce provides keyed min-interval gating for discrete events
// derived from noisy per-frame signals, such as step plants or balance
// losses. Decisions use the frame timestamps carried by the samples, never
// the wall clock, so replayed recordings debounce identically to live feeds.
package debounce

import (
	"sync"
	"time"

	"github.com/virtualmirror/kinescreen/pkg/metrics"
)

// Gate decides whether a keyed event may fire at a given frame time.
type Gate interface {
	// Allow reports whether an event for key may fire at the frame time at,
	// and records the firing when it does. The first event for a key always
	// fires; later events fire only once the configured interval has elapsed
	// since the last accepted firing for that key.
	Allow(key string, at time.Time) bool

	// Last returns the frame time of the most recent accepted firing for
	// key, and whether the key has fired at all.
	Last(key string) (time.Time, bool)

	// Reset forgets all keys, typically between attempts.
	Reset()

	Size() int
}

// inMemoryGate implements Gate with a plain map guarded by a mutex. The key
// cardinality is tiny (a handful of event families per evaluator), so no
// eviction is needed.
type inMemoryGate struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
}

// NewGate creates a gate with configuration options.
func NewGate(opts ...Option) Gate {
	g := &inMemoryGate{
		interval: 300 * time.Millisecond, // default min interval
	}

	for _, opt := range opts {
		opt(g)
	}

	g.last = make(map[string]time.Time)

	return g
}

// Allow reports whether an event for key may fire at frame time at.
func (g *inMemoryGate) Allow(key string, at time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev, seen := g.last[key]
	if seen && at.Sub(prev) < g.interval {
		metrics.RecordDebouncedEvent()
		return false
	}

	g.last[key] = at
	return true
}

// Last returns the frame time of the most recent accepted firing for key.
func (g *inMemoryGate) Last(key string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	at, ok := g.last[key]
	return at, ok
}

// Reset forgets all keys.
func (g *inMemoryGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.last = make(map[string]time.Time)
}

// Size returns the number of keys that have fired at least once.
func (g *inMemoryGate) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.last)
}
