package stream

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/pose"
	"github.com/virtualmirror/kinescreen/internal/domain/task"
	"github.com/virtualmirror/kinescreen/pkg/logger"
	"github.com/virtualmirror/kinescreen/pkg/metrics"
)

// defaultUpdateBuffer sizes the updates channel. A lagging consumer costs
// dropped guidance updates, never a stalled evaluator.
const defaultUpdateBuffer = 64

// Source defines how the runner receives samples.
type Source interface {
	Samples() <-chan pose.Sample
}

// Runner drives the task evaluators from a sample source. It owns the one
// consumer goroutine, so samples reach the active evaluator serially and in
// feed order; Begin and Finish select which evaluator that is.
type Runner struct {
	source       Source
	registry     *task.Registry
	updates      chan task.Update
	updateBuffer int
	name         string

	mu     sync.Mutex
	active task.Evaluator
	done   bool

	// Shutdown control
	shutdown chan struct{}
	stopped  chan struct{}

	logger logger.Logger
}

// NewRunner creates a runner consuming from source and dispatching to the
// registry's evaluators.
func NewRunner(source Source, registry *task.Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		source:       source,
		registry:     registry,
		updateBuffer: defaultUpdateBuffer,
		name:         "runner",
		shutdown:     make(chan struct{}),
		stopped:      make(chan struct{}),
		logger:       logger.Get().Named("runner"),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.name != "runner" {
		r.logger = r.logger.Named(r.name)
	}
	r.updates = make(chan task.Update, r.updateBuffer)

	return r
}

// Begin starts a fresh attempt of the given kind; samples consumed from now
// on drive its evaluator. Any previous attempt is stopped first.
func (r *Runner) Begin(kind task.Kind) error {
	select {
	case <-r.shutdown:
		return ErrStopped
	default:
	}

	ev, ok := r.registry.Evaluator(kind)
	if !ok {
		return fmt.Errorf("begin %s: %w", kind, task.ErrUnknownKind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		r.active.Stop()
	}
	ev.Start()
	r.active = ev
	r.done = false
	return nil
}

// Finish ends the active attempt, freezing the evaluator's state. Samples
// that keep arriving re-emit its completion snapshot.
func (r *Runner) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		r.active.Stop()
	}
}

// Active returns the kind currently receiving samples.
func (r *Runner) Active() (task.Kind, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return "", false
	}
	return r.active.Kind(), true
}

// Updates returns the stream of evaluator updates. When the consumer lags,
// updates are dropped rather than blocking the evaluator.
func (r *Runner) Updates() <-chan task.Update {
	return r.updates
}

// Run consumes samples until the source closes, the context is canceled or
// Shutdown is called.
func (r *Runner) Run(ctx context.Context) {
	metrics.UpdateRunnersActive(1)
	defer func() {
		metrics.UpdateRunnersActive(0)
		close(r.stopped)
	}()

	samples := r.source.Samples()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.shutdown:
			return
		case s, ok := <-samples:
			if !ok {
				return
			}
			metrics.RecordSampleDequeued()
			r.process(ctx, s)
		}
	}
}

// Shutdown stops the runner and waits for the loop to exit.
func (r *Runner) Shutdown(ctx context.Context) error {
	select {
	case <-r.shutdown:
	default:
		close(r.shutdown)
	}

	select {
	case <-r.stopped:
		return nil
	case <-ctx.Done():
		r.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process feeds one sample to the active evaluator and publishes the update.
// The lock spans the Update call so Begin and Finish take effect between
// samples, never mid-update.
func (r *Runner) process(ctx context.Context, s pose.Sample) {
	r.mu.Lock()
	ev := r.active
	if ev == nil {
		r.mu.Unlock()
		return
	}

	start := time.Now()
	update := ev.Update(s)
	latency := float64(time.Since(start).Milliseconds())

	kind := ev.Kind()
	completed := update.Done && !r.done
	r.done = update.Done
	r.mu.Unlock()

	metrics.RecordEvaluationLatency(latency)
	metrics.RecordFrameProcessed()
	if !s.Measurements.Visible {
		metrics.RecordFrameLowVisibility()
	}
	metrics.RecordTaskUpdate(kind.String())
	if completed {
		score := "none"
		if v, ok := update.Metrics[kind.ScoreKey()]; ok {
			score = strconv.Itoa(int(math.Round(v)))
		}
		metrics.RecordTaskCompletion(kind.String(), score)
	}

	select {
	case r.updates <- update:
	default:
		r.logger.Debug(ctx, "update dropped, consumer lagging",
			logger.String("task", kind.String()),
		)
	}
}
