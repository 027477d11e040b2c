// Package live runs the simulated broker against ticks that arrive while it
// runs. A producer pushes ticks into an unbounded Queue and a single
// consumer, the Runner, applies them strictly in arrival order.
package live

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/smallnest/chanx"
)

const queueInitCap = 64

// Queue is an unbounded FIFO safe for many producers and one consumer.
// Nothing bounds its growth: a consumer that falls behind accumulates
// memory.
type Queue[T any] struct {
	mu     sync.RWMutex
	closed bool
	ch     *chanx.UnboundedChan[T]
	n      atomic.Int64
}

func NewQueue[T any]() *Queue[T] {
	// the channel drains and closes Out once In is closed, so it needs no
	// cancellation of its own
	return &Queue[T]{ch: chanx.NewUnboundedChan[T](context.Background(), queueInitCap)}
}

// Push appends v. It reports false, dropping v, once the queue is closed.
func (q *Queue[T]) Push(v T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	q.n.Add(1)
	q.ch.In <- v
	return true
}

// Close stops further pushes. Items already queued can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch.In)
}

// Pop blocks until an item is available or the queue is closed and empty.
func (q *Queue[T]) Pop() (T, bool) {
	v, ok := <-q.ch.Out
	if ok {
		q.n.Add(-1)
	}
	return v, ok
}

// Len is the number of items pushed and not yet popped.
func (q *Queue[T]) Len() int {
	return int(q.n.Load())
}

func (q *Queue[T]) Closed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
