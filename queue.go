package rowpipe

import (
	"context"
	"fmt"
	"sync"
)

// Queue is a bounded FIFO shared by any number of writers and readers, which can be closed for writes.
//
// Blocking calls wait on a broadcast channel which is replaced on every state change, and on the context. Nothing
// ever spins.
type Queue[T any] struct {
	mu      sync.Mutex
	buf     []T
	head    int
	count   int
	closed  bool
	changed chan struct{}
}

// NewQueue creates an open, empty queue able to buffer capacity items.
func NewQueue[T any](capacity int) (*Queue[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: queue capacity must be at least 1, got %d", ErrInvalidConfig, capacity)
	}
	return &Queue[T]{
		buf:     make([]T, capacity),
		changed: make(chan struct{}),
	}, nil
}

// Add appends item, waiting while the queue is full. It returns ErrQueueClosed as soon as the queue is closed (even
// while waiting), and the context error if ctx is done first. A done ctx is checked before anything else, so a
// cancelled caller never gets one more item in.
func (q *Queue[T]) Add(ctx context.Context, item T) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return ErrQueueClosed
		}
		if q.count < len(q.buf) {
			q.push(item)
			q.mu.Unlock()
			return nil
		}
		wait := q.changed
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Remove takes the oldest item, waiting while the queue is empty and open.
//
// ok is false (with a nil error) once the queue is closed and drained: this is the normal end of the stream. err is
// only set when ctx is done, which is checked before taking anything.
func (q *Queue[T]) Remove(ctx context.Context) (item T, ok bool, err error) {
	for {
		if err := ctx.Err(); err != nil {
			return item, false, err
		}
		q.mu.Lock()
		if q.count > 0 {
			item = q.pop()
			q.mu.Unlock()
			return item, true, nil
		}
		if q.closed {
			q.mu.Unlock()
			return item, false, nil
		}
		wait := q.changed
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return item, false, ctx.Err()
		}
	}
}

// Poll takes the oldest item if any, without waiting.
func (q *Queue[T]) Poll() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return item, false
	}
	return q.pop(), true
}

// Close marks the queue closed for writes and wakes every waiting caller. Buffered items stay readable. Closing twice
// is a no-op.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.broadcast()
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

// push and pop must be called with mu held.
func (q *Queue[T]) push(item T) {
	q.buf[(q.head+q.count)%len(q.buf)] = item
	q.count++
	q.broadcast()
}

func (q *Queue[T]) pop() T {
	var zero T
	item := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.broadcast()
	return item
}

func (q *Queue[T]) broadcast() {
	close(q.changed)
	q.changed = make(chan struct{})
}
