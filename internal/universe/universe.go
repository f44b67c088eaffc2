// Package universe models universe selection: the algorithm-supplied
// policy choosing which securities to follow at each selection event.
// The feed invokes the selector; it does not define the policy.
package universe

import (
	"time"

	"feed_engine/internal/data"

	"github.com/google/uuid"
)

// SelectionFunc picks the symbols to follow from a coarse-fundamental
// payload delivered at selectionTime.
type SelectionFunc func(selectionTime time.Time, coarse []*data.CoarseFundamental) []data.Symbol

// Universe is one selection stream. Its pseudo-symbol routes bulk
// payloads from the upstream queue to the universe subscription.
type Universe struct {
	ID     uuid.UUID
	Symbol data.Symbol
	Config data.SubscriptionConfig
	Select SelectionFunc
}

// NewCoarseUniverse builds a coarse-fundamental universe routed by the
// given pseudo-symbol.
func NewCoarseUniverse(symbol data.Symbol, tz *time.Location, selector SelectionFunc) *Universe {
	return &Universe{
		ID:     uuid.New(),
		Symbol: symbol,
		Config: data.SubscriptionConfig{
			Symbol:       symbol,
			SecurityType: data.SecurityTypeBase,
			Resolution:   data.ResolutionSecond,
			Increment:    time.Second,
			TimeZone:     tz,
			DataType:     data.DataTypeCoarseFundamental,
		},
		Select: selector,
	}
}
