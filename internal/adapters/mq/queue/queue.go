// Package queue buffers reading batches between ingress and the tick runner.
//
// The queue is bounded; producers never block and are told when it is full
// so they can apply backpressure.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/parkprice/internal/domain/model"
	"github.com/okian/parkprice/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a batch. It returns ErrFull or ErrClosed when the batch
	// was not accepted.
	Enqueue(ctx context.Context, b model.Batch) error

	// Dequeue returns the channel batches are delivered on, in enqueue
	// order. It is closed once the queue is closed and drained.
	Dequeue() <-chan model.Batch

	// Len returns the current number of queued batches.
	Len() int

	// Cap returns the queue capacity.
	Cap() int

	// Close stops accepting batches. Queued batches remain readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	batches  chan model.Batch
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.batches = make(chan model.Batch, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a batch to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, b model.Batch) error { //nolint:gocritic // hugeParam: batches travel by value
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return fmt.Errorf("enqueue %q: %w", b.ID, ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return fmt.Errorf("enqueue %q: %w", b.ID, err)
	}

	select {
	case q.batches <- b:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.batches))
		return nil
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return fmt.Errorf("enqueue %q: %w", b.ID, ErrFull)
	}
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue) Dequeue() <-chan model.Batch {
	return q.batches
}

// Len returns the current number of queued batches.
func (q *InMemoryQueue) Len() int {
	size := len(q.batches)
	metrics.UpdateQueueSize(size)
	return size
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.batches)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

var _ Queue = (*InMemoryQueue)(nil)
