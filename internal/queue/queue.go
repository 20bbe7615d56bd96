// Package queue provides the unbounded FIFO an inbox delivers decrypted
// emails through. Writes never block; a slow consumer grows the buffer
// instead of losing events.
package queue

import (
	"context"
	"sync"
)

// Queue is an unbounded multi-producer FIFO. The zero value is not usable;
// call New.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an item. Pushing to a closed queue is a no-op so late
// delivery callbacks racing a dispose never panic.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.items = append(q.items, item)
	q.cond.Signal()
}

// Pop blocks until an item is available, the queue is closed, or ctx is
// done. The second return is false when the queue is closed and drained;
// a context error is returned as-is.
func (q *Queue[T]) Pop(ctx context.Context) (T, bool, error) {
	var zero T

	// Wake the cond wait when the context fires. The stop func prevents
	// a leaked goroutine when Pop returns first.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.cond.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed && ctx.Err() == nil {
		q.cond.Wait()
	}

	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if len(q.items) == 0 {
		// Closed and drained.
		return zero, false, nil
	}

	item := q.items[0]
	q.items = q.items[1:]
	return item, true, nil
}

// TryPop returns the head item without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len reports the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue closed and wakes all waiting readers. Buffered
// items remain readable; Pop reports end-of-stream once drained. Close is
// idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
