// Package queue defines the upstream DataQueueHandler contract and the
// vendor adapters that satisfy it: a random-walk simulator, the Alpaca
// websocket stream, and a generic JSON websocket feed.
package queue

import "feed_engine/internal/data"

// DataQueueHandler is the vendor-specific adapter providing raw market
// events to the feed.
type DataQueueHandler interface {
	// GetNextTicks returns whatever arrived since the last poll. It must
	// be non-blocking or briefly blocking and may return an empty batch.
	GetNextTicks() []data.BaseData
	// Subscribe requests data for the given symbols. Idempotent and
	// additive.
	Subscribe(symbols map[data.SecurityType][]data.Symbol) error
	// Unsubscribe stops data for the given symbols. Idempotent.
	Unsubscribe(symbols map[data.SecurityType][]data.Symbol) error
}
