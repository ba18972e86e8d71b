// Package ingest is the Core Ingest/Dispatch pipeline of spec.md §4.4:
// an unbounded FIFO queue feeding a single dispatcher, which hands each
// order to a worker pool but waits for it to finish before dequeuing
// the next one — the strict, no-reordering guarantee spec.md demands.
// Grounded in the teacher's internal/worker.go/internal/server.go
// (tomb-supervised worker pool) and original_source/src/engine.cpp's
// dispatchOrders loop.
package ingest

import (
	"sync"

	"github.com/dorufloare/matchbook/internal/common"
)

// queue is a plain mutex+condition-variable FIFO. It's unbounded, per
// spec.md §4.4 — Submit never blocks the producer waiting for room.
type queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	orders  []common.Order
	closed  bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(o common.Order) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.orders = append(q.orders, o)
	q.cond.Signal()
}

// pop blocks until an order is available or the queue is closed, in
// which case ok is false.
func (q *queue) pop() (common.Order, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.orders) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.orders) == 0 {
		return common.Order{}, false
	}
	o := q.orders[0]
	q.orders = q.orders[1:]
	return o, true
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
