package feed

import (
	"sync"
	"time"

	"feed_engine/internal/data"
	"feed_engine/internal/enumerator"
	"feed_engine/internal/universe"

	"github.com/shopspring/decimal"
)

// SubscriptionKey is the routing identity of a subscription.
type SubscriptionKey struct {
	Symbol data.Symbol
	Type   data.SecurityType
}

// Subscription is one symbol's pipeline from upstream to the frontier.
// The frontier goroutine owns Source advancement and needsAdvance; the
// dispatcher goroutine only pushes into the source and updates the
// realtime price.
type Subscription struct {
	Config   data.SubscriptionConfig
	Security *data.Security
	Source   enumerator.Enumerator

	UTCStart time.Time
	UTCEnd   time.Time

	IsUserDefined       bool
	IsUniverseSelection bool
	Universe            *universe.Universe

	// needsAdvance is true when Current has been consumed (or never
	// produced) and the next pass must call Next first. Frontier-owned.
	needsAdvance bool

	mu            sync.Mutex
	realtimePrice decimal.Decimal
}

// Key returns the subscription's routing identity.
func (s *Subscription) Key() SubscriptionKey {
	return SubscriptionKey{Symbol: s.Config.Symbol, Type: s.Config.SecurityType}
}

// SetRealtimePrice records the latest observed trade price, making it
// visible before any bar closes.
func (s *Subscription) SetRealtimePrice(p decimal.Decimal) {
	s.mu.Lock()
	s.realtimePrice = p
	s.mu.Unlock()
}

// RealtimePrice returns the latest observed trade price.
func (s *Subscription) RealtimePrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.realtimePrice
}
