// Package enumerator implements the lazy polled sequences that make up a
// per-symbol pipeline: a concurrent enqueue source, a tick-to-bar
// aggregator, a fill-forward wrapper and the final subscription filter.
//
// These are live sequences, not collection iterators: Next returning true
// means "not terminated", and Current may still be nil when nothing is
// ready. Consumers poll.
package enumerator

import "feed_engine/internal/data"

// Enumerator is a lazy sequence of market data.
type Enumerator interface {
	// Next advances the sequence. It never blocks. A false return means
	// the sequence is terminal; live sources always return true.
	Next() bool
	// Current returns the element produced by the last Next call, or nil
	// when nothing was ready.
	Current() data.BaseData
}
