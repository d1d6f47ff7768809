// Package stream moves pose samples from a capture source to the task
// evaluators. The feed is a bounded buffer that rejects offers when full,
// leaving the producer to decide whether to drop or retry; the runner owns
// the single consumer goroutine so samples reach an evaluator serially and
// in frame order.
package stream

import (
	"context"
	"sync"

	"github.com/virtualmirror/kinescreen/internal/domain/pose"
	"github.com/virtualmirror/kinescreen/pkg/metrics"
)

// defaultFeedCapacity bounds the sample buffer; at 30 frames per second it
// holds several seconds of backlog.
const defaultFeedCapacity = 256

// Feed provides non-blocking sample intake and channel-based consumption.
type Feed interface {
	// Offer adds a sample to the feed.
	// Returns false if the feed is full or closed and the sample was dropped.
	Offer(ctx context.Context, s pose.Sample) bool

	// Samples returns the channel the consumer reads from. After Close it
	// drains the remaining samples and then closes.
	Samples() <-chan pose.Sample

	// Len returns the current number of buffered samples.
	Len() int

	// Close stops intake. Closing twice is a no-op.
	Close() error

	// IsClosed reports whether the feed has been closed.
	IsClosed() bool
}

// BoundedFeed implements Feed with a buffered channel.
type BoundedFeed struct {
	samples  chan pose.Sample
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewBoundedFeed creates a feed with configuration options.
func NewBoundedFeed(opts ...FeedOption) *BoundedFeed {
	f := &BoundedFeed{capacity: defaultFeedCapacity}
	for _, opt := range opts {
		opt(f)
	}
	f.samples = make(chan pose.Sample, f.capacity)

	metrics.UpdateFeedCapacity(f.capacity)
	metrics.UpdateFeedDepth(0)
	return f
}

// Offer adds a sample to the feed.
func (f *BoundedFeed) Offer(ctx context.Context, s pose.Sample) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		metrics.RecordFeedDrop()
		return false
	}

	select {
	case f.samples <- s:
		metrics.RecordSampleEnqueued()
		metrics.UpdateFeedDepth(len(f.samples))
		return true
	case <-ctx.Done():
		metrics.RecordFeedDrop()
		return false
	default:
		metrics.RecordFeedDrop()
		return false
	}
}

// Samples returns the consumer channel.
func (f *BoundedFeed) Samples() <-chan pose.Sample {
	return f.samples
}

// Len returns the current number of buffered samples.
func (f *BoundedFeed) Len() int {
	depth := len(f.samples)
	metrics.UpdateFeedDepth(depth)
	return depth
}

// Close stops intake.
func (f *BoundedFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	close(f.samples)
	f.closed = true
	return nil
}

// IsClosed reports whether the feed has been closed.
func (f *BoundedFeed) IsClosed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.closed
}
