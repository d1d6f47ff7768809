package stream

import "github.com/virtualmirror/kinescreen/pkg/logger"

// FeedOption applies a configuration option to the BoundedFeed.
type FeedOption func(*BoundedFeed)

// WithCapacity sets the maximum number of buffered samples.
func WithCapacity(capacity int) FeedOption {
	return func(f *BoundedFeed) {
		if capacity > 0 {
			f.capacity = capacity
		}
	}
}

// RunnerOption applies a configuration option to the Runner.
type RunnerOption func(*Runner)

// WithName sets the runner name used in logs.
func WithName(name string) RunnerOption {
	return func(r *Runner) {
		if name != "" {
			r.name = name
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithUpdateBuffer sets the capacity of the updates channel.
func WithUpdateBuffer(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.updateBuffer = n
		}
	}
}
