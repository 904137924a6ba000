// Package worker drains the batch queue into the engine.
//
// A single runner consumes the queue so batches reach the engine in the
// order they were accepted.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/parkprice/internal/domain/model"
	"github.com/okian/parkprice/internal/engine"
	"github.com/okian/parkprice/pkg/logger"
	"github.com/okian/parkprice/pkg/metrics"
)

// Ticker runs one engine tick.
type Ticker interface {
	Tick(ctx context.Context, b model.Batch) (engine.TickResult, error)
}

// Queue defines how the runner receives batches.
type Queue interface {
	Dequeue() <-chan model.Batch
}

// Worker consumes batches until stopped.
type Worker interface {
	// Run starts the loop and blocks until ctx is canceled, Shutdown is
	// called or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the loop after the batch in flight, if any.
	Shutdown(ctx context.Context) error
}

// TickRunner implements Worker on top of a Ticker.
type TickRunner struct {
	queue    Queue
	ticker   Ticker
	name     string
	onResult func(engine.TickResult)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewTickRunner creates a runner reading q and ticking t.
func NewTickRunner(q Queue, t Ticker, opts ...Option) *TickRunner {
	w := &TickRunner{
		queue:    q,
		ticker:   t,
		name:     "tick-runner",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the runner loop.
func (w *TickRunner) Run(ctx context.Context) {
	defer close(w.done)

	batches := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case b, ok := <-batches:
			if !ok {
				w.logger.Info(ctx, "queue closed, runner exiting")
				return
			}
			if err := w.process(ctx, b); err != nil {
				w.logger.Error(ctx, "tick failed", logger.String("batch", b.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the runner.
func (w *TickRunner) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *TickRunner) Done() <-chan struct{} {
	return w.done
}

func (w *TickRunner) process(ctx context.Context, b model.Batch) error { //nolint:gocritic // hugeParam: batches travel by value
	metrics.RecordWorkerBatch()
	res, err := w.ticker.Tick(ctx, b)
	if err != nil {
		metrics.RecordWorkerError(engine.Reason(err))
		return fmt.Errorf("batch %q: %w", b.ID, err)
	}
	if w.onResult != nil {
		w.onResult(res)
	}
	return nil
}

var _ Worker = (*TickRunner)(nil)
