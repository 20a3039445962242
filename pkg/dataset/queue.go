package dataset

import (
	"context"
	"sync"
)

// PromiseQueue tracks in-flight asynchronous operations for one DataSet or
// Field so that readiness can be awaited. It does not serialize execution
// start: multiple tracked operations may run concurrently, and callers
// needing strict ordering must wait on each operation before issuing the
// next.
type PromiseQueue struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

// NewPromiseQueue creates an idle queue.
func NewPromiseQueue() *PromiseQueue {
	return &PromiseQueue{}
}

// Add runs fn while tracking it as in-flight, returning fn's result. Ready
// blocks until every added operation has finished.
func (q *PromiseQueue) Add(fn func() error) error {
	q.enter()
	defer q.leave()
	return fn()
}

// enter marks one operation in flight.
func (q *PromiseQueue) enter() {
	q.mu.Lock()
	q.n++
	q.mu.Unlock()
}

// leave marks one operation finished and wakes Ready waiters when the
// queue drains.
func (q *PromiseQueue) leave() {
	q.mu.Lock()
	q.n--
	if q.n == 0 && q.idle != nil {
		close(q.idle)
		q.idle = nil
	}
	q.mu.Unlock()
}

// Len returns the number of operations currently in flight.
func (q *PromiseQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Ready blocks until all in-flight operations have finished or ctx is done.
func (q *PromiseQueue) Ready(ctx context.Context) error {
	q.mu.Lock()
	if q.n == 0 {
		q.mu.Unlock()
		return nil
	}
	if q.idle == nil {
		q.idle = make(chan struct{})
	}
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
