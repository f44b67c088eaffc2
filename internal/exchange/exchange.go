// Package exchange implements the fan-out stage of the feed: a single
// consumer goroutine polls the upstream queue and dispatches each item to
// the handler registered for its symbol.
package exchange

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"feed_engine/internal/data"
)

// idleBackoff is how long the consumer sleeps after a poll in which no
// item found a handler.
const idleBackoff = 5 * time.Millisecond

// DataSource is the polled upstream. GetNextTicks must be non-blocking or
// briefly blocking and may return an empty batch.
type DataSource interface {
	GetNextTicks() []data.BaseData
}

// Handler receives every item routed to its symbol, in polled order, on
// the consumer goroutine. Handlers must not block: they push into the
// per-symbol queues and return.
type Handler func(item data.BaseData) error

// ErrorHandler decides whether a dispatch error is fatal. Returning true
// stops the consumer.
type ErrorHandler func(err error) bool

// Exchange routes upstream items to per-symbol handlers. Handler
// installation and removal are concurrent with dispatch.
type Exchange struct {
	source DataSource

	mu       sync.RWMutex
	handlers map[data.Symbol]Handler
	isFatal  ErrorHandler

	runMu   sync.Mutex
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

func New(source DataSource) *Exchange {
	return &Exchange{
		source:   source,
		handlers: make(map[data.Symbol]Handler),
		// Default policy: a faulty handler does not stop ingestion.
		isFatal: func(error) bool { return false },
	}
}

// SetHandler installs or replaces the handler for a symbol.
func (e *Exchange) SetHandler(symbol data.Symbol, h Handler) {
	e.mu.Lock()
	e.handlers[symbol] = h
	e.mu.Unlock()
}

// RemoveHandler removes the handler for a symbol and reports whether one
// was installed.
func (e *Exchange) RemoveHandler(symbol data.Symbol) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.handlers[symbol]
	delete(e.handlers, symbol)
	return ok
}

// SetErrorHandler installs the fatal-error predicate.
func (e *Exchange) SetErrorHandler(h ErrorHandler) {
	if h == nil {
		return
	}
	e.mu.Lock()
	e.isFatal = h
	e.mu.Unlock()
}

// BeginConsume starts the consumer goroutine. Subsequent calls are no-ops
// until EndConsume.
func (e *Exchange) BeginConsume() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.started {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.started = true
	// Each consumer owns the done channel it was started with, so a
	// restart racing a stopping consumer cannot close the new channel.
	go e.consume(ctx, e.done)
}

// EndConsume requests termination and waits for the consumer to drain its
// current poll and exit.
func (e *Exchange) EndConsume() {
	e.runMu.Lock()
	if !e.started {
		e.runMu.Unlock()
		return
	}
	e.cancel()
	done := e.done
	e.started = false
	e.runMu.Unlock()
	<-done
}

func (e *Exchange) consume(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		items, err := e.poll()
		if err != nil {
			log.Printf("exchange: upstream poll error: %v", err)
			if e.fatal(err) {
				log.Printf("exchange: poll error is fatal, consumer exiting")
				return
			}
			// A persistently failing upstream must not hot-spin.
			time.Sleep(idleBackoff)
			continue
		}

		handled := false
		for _, item := range items {
			h, ok := e.handler(item.GetSymbol())
			if !ok {
				continue
			}
			handled = true
			if err := e.dispatch(h, item); err != nil {
				log.Printf("exchange: handler error for %s: %v", item.GetSymbol(), err)
				if e.fatal(err) {
					log.Printf("exchange: handler error is fatal, consumer exiting")
					return
				}
			}
		}

		if !handled {
			time.Sleep(idleBackoff)
		}
	}
}

// poll calls the upstream, converting a panic into an error so a faulty
// adapter goes through the same fatal-or-continue policy as handlers.
func (e *Exchange) poll() (items []data.BaseData, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("upstream panic: %v", r)
		}
	}()
	return e.source.GetNextTicks(), nil
}

func (e *Exchange) dispatch(h Handler, item data.BaseData) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(item)
}

func (e *Exchange) handler(symbol data.Symbol) (Handler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.handlers[symbol]
	return h, ok
}

func (e *Exchange) fatal(err error) bool {
	e.mu.RLock()
	isFatal := e.isFatal
	e.mu.RUnlock()
	return isFatal(err)
}
