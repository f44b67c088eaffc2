package queue

import (
	"math/rand"
	"sync"

	"feed_engine/internal/clock"
	"feed_engine/internal/data"

	"github.com/shopspring/decimal"
)

// SimulatedDataQueueHandler generates random-walk ticks for every
// subscribed symbol, so the engine runs end to end without vendor
// credentials. Each poll produces at most one tick per symbol.
type SimulatedDataQueueHandler struct {
	clock clock.TimeProvider

	mu     sync.Mutex
	prices map[data.Symbol]float64
	rng    *rand.Rand
}

func NewSimulatedDataQueueHandler(tp clock.TimeProvider, seed int64) *SimulatedDataQueueHandler {
	return &SimulatedDataQueueHandler{
		clock:  tp,
		prices: make(map[data.Symbol]float64),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (s *SimulatedDataQueueHandler) Subscribe(symbols map[data.SecurityType][]data.Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, syms := range symbols {
		for _, sym := range syms {
			if _, ok := s.prices[sym]; !ok {
				// Seed each symbol somewhere between 50 and 250.
				s.prices[sym] = 50 + s.rng.Float64()*200
			}
		}
	}
	return nil
}

func (s *SimulatedDataQueueHandler) Unsubscribe(symbols map[data.SecurityType][]data.Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, syms := range symbols {
		for _, sym := range syms {
			delete(s.prices, sym)
		}
	}
	return nil
}

func (s *SimulatedDataQueueHandler) GetNextTicks() []data.BaseData {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var out []data.BaseData
	for sym, price := range s.prices {
		// Drift the price by up to ±0.1% per poll.
		price *= 1 + (s.rng.Float64()-0.5)*0.002
		s.prices[sym] = price

		last := decimal.NewFromFloat(price).Round(4)
		spread := decimal.NewFromFloat(price * 0.0002).Round(4)
		out = append(out, &data.Tick{
			Symbol:    sym,
			Time:      now,
			BidPrice:  last.Sub(spread),
			AskPrice:  last.Add(spread),
			LastPrice: last,
			Quantity:  decimal.NewFromInt(int64(1 + s.rng.Intn(100))),
		})
	}
	return out
}
