// Package debounce provides keyed min-interval gating for discrete events.
package debounce

import "time"

// Option applies a configuration option to the gate.
type Option func(*inMemoryGate)

// WithMinInterval sets the minimum frame-time interval between accepted
// firings of the same key. Non-positive values are ignored and the default
// is kept.
func WithMinInterval(interval time.Duration) Option {
	return func(g *inMemoryGate) {
		if interval > 0 {
			g.interval = interval
		}
	}
}
