// Package bridge carries consolidated time slices from the frontier loop
// to the downstream consumer over a bounded, cancellable channel.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"feed_engine/internal/data"
)

// ErrClosed is returned once the bridge has been closed and drained.
var ErrClosed = errors.New("bridge: closed")

// Bridge is a bounded queue of time slices. Add blocks on backpressure
// until the downstream drains capacity or the context is cancelled.
type Bridge struct {
	ch chan *data.TimeSlice

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func New(capacity int) *Bridge {
	if capacity < 1 {
		capacity = 1
	}
	return &Bridge{
		ch:   make(chan *data.TimeSlice, capacity),
		done: make(chan struct{}),
	}
}

// Add enqueues a slice, blocking while the bridge is full.
func (b *Bridge) Add(ctx context.Context, slice *data.TimeSlice) error {
	select {
	case b.ch <- slice:
		return nil
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next blocks until a slice is available, the bridge closes, or the
// context is cancelled.
func (b *Bridge) Next(ctx context.Context) (*data.TimeSlice, error) {
	select {
	case slice := <-b.ch:
		return slice, nil
	case <-b.done:
		// Drain anything the writer got in before closing.
		select {
		case slice := <-b.ch:
			return slice, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WaitForRoom blocks while the bridge is full. The frontier uses this
// before firing universe selection so the selection callback cannot race
// ahead of a backlogged downstream.
func (b *Bridge) WaitForRoom(ctx context.Context) error {
	for {
		if len(b.ch) < cap(b.ch) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return ErrClosed
		case <-time.After(time.Millisecond):
		}
	}
}

// Count returns the number of undelivered slices.
func (b *Bridge) Count() int {
	return len(b.ch)
}

// Close marks the bridge closed. Idempotent.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
}
