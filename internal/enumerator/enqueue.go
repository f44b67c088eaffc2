package enumerator

import (
	"sync"

	"feed_engine/internal/data"
)

// Enqueueable is a lazy sequence over a concurrent FIFO queue. The
// dispatcher thread enqueues, the frontier thread polls. Next yields a
// nil Current when the queue is empty and keeps returning true until
// Stop has been called and the queue is drained.
type Enqueueable struct {
	mu      sync.Mutex
	queue   []data.BaseData
	stopped bool
	current data.BaseData
}

func NewEnqueueable() *Enqueueable {
	return &Enqueueable{}
}

// Enqueue appends an item. Safe to call from any goroutine.
func (e *Enqueueable) Enqueue(item data.BaseData) {
	e.mu.Lock()
	e.queue = append(e.queue, item)
	e.mu.Unlock()
}

// Stop marks the sequence terminal. The next Next that finds the queue
// empty returns false, and every Next after that does too.
func (e *Enqueueable) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
}

func (e *Enqueueable) Next() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue) > 0 {
		e.current = e.queue[0]
		e.queue = e.queue[1:]
		return true
	}

	e.current = nil
	return !e.stopped
}

func (e *Enqueueable) Current() data.BaseData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Len returns the number of queued items not yet consumed.
func (e *Enqueueable) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}
