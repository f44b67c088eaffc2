package exchange

import (
	"errors"
	"sync"
	"testing"
	"time"

	"feed_engine/internal/data"

	"github.com/shopspring/decimal"
)

// scriptedSource replays fixed batches, then returns empty polls.
type scriptedSource struct {
	mu      sync.Mutex
	batches [][]data.BaseData
}

func (s *scriptedSource) GetNextTicks() []data.BaseData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch
}

// countingHandler records every item it receives.
type countingHandler struct {
	mu    sync.Mutex
	items []data.BaseData
}

func (h *countingHandler) handle(item data.BaseData) error {
	h.mu.Lock()
	h.items = append(h.items, item)
	h.mu.Unlock()
	return nil
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

func spyTick(symbol string) *data.Tick {
	return &data.Tick{
		Symbol:    data.Symbol(symbol),
		Time:      time.Now().UTC(),
		LastPrice: decimal.NewFromFloat(100.0),
		Quantity:  decimal.NewFromInt(1),
	}
}

func TestExchangeRoutesBySymbol(t *testing.T) {
	source := &scriptedSource{batches: [][]data.BaseData{{spyTick("SPY")}}}
	ex := New(source)

	spy := &countingHandler{}
	eur := &countingHandler{}
	ex.SetHandler("SPY", spy.handle)
	ex.SetHandler("EURUSD", eur.handle)

	ex.BeginConsume()
	defer ex.EndConsume()
	time.Sleep(20 * time.Millisecond)

	if spy.count() != 1 {
		t.Errorf("SPY handler fired %d times, want 1", spy.count())
	}
	if eur.count() != 0 {
		t.Errorf("EURUSD handler fired %d times, want 0", eur.count())
	}
}

func TestExchangeRemoveHandler(t *testing.T) {
	source := &scriptedSource{batches: [][]data.BaseData{{spyTick("SPY")}}}
	ex := New(source)

	spy := &countingHandler{}
	ex.SetHandler("SPY", spy.handle)
	if !ex.RemoveHandler("SPY") {
		t.Fatal("RemoveHandler must report an installed handler")
	}
	if ex.RemoveHandler("SPY") {
		t.Fatal("RemoveHandler must report a missing handler")
	}

	ex.BeginConsume()
	defer ex.EndConsume()
	time.Sleep(20 * time.Millisecond)

	if spy.count() != 0 {
		t.Errorf("removed handler still fired %d times", spy.count())
	}
}

func TestExchangeDefaultErrorPolicyContinues(t *testing.T) {
	source := &scriptedSource{batches: [][]data.BaseData{
		{spyTick("SPY")}, {spyTick("SPY")}, {spyTick("SPY")},
	}}
	ex := New(source)

	var mu sync.Mutex
	calls := 0
	ex.SetHandler("SPY", func(data.BaseData) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("boom")
	})

	ex.BeginConsume()
	defer ex.EndConsume()
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Errorf("faulty handler stopped ingestion: %d calls, want 3", calls)
	}
}

func TestExchangeFatalPredicateStopsConsumption(t *testing.T) {
	// Many batches; only the first should be observed.
	var batches [][]data.BaseData
	for i := 0; i < 50; i++ {
		batches = append(batches, []data.BaseData{spyTick("SPY")})
	}
	source := &scriptedSource{batches: batches}
	ex := New(source)
	ex.SetErrorHandler(func(error) bool { return true })

	var mu sync.Mutex
	var first, last data.BaseData
	ex.SetHandler("SPY", func(item data.BaseData) error {
		mu.Lock()
		defer mu.Unlock()
		if first == nil {
			first = item
			return errors.New("boom")
		}
		last = item
		return nil
	})

	ex.BeginConsume()
	defer ex.EndConsume()
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if first == nil {
		t.Fatal("first item never delivered")
	}
	if last != nil {
		t.Errorf("items delivered after a fatal handler error: %v", last)
	}
}

func TestExchangeHandlerPanicIsRecovered(t *testing.T) {
	source := &scriptedSource{batches: [][]data.BaseData{
		{spyTick("SPY")}, {spyTick("SPY")},
	}}
	ex := New(source)

	var mu sync.Mutex
	calls := 0
	ex.SetHandler("SPY", func(data.BaseData) error {
		mu.Lock()
		calls++
		mu.Unlock()
		panic("handler bug")
	})

	ex.BeginConsume()
	defer ex.EndConsume()
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("panicking handler stopped ingestion: %d calls, want 2", calls)
	}
}

// faultySource counts polls and panics on every one.
type faultySource struct {
	mu    sync.Mutex
	polls int
}

func (s *faultySource) GetNextTicks() []data.BaseData {
	s.mu.Lock()
	s.polls++
	s.mu.Unlock()
	panic("vendor down")
}

func (s *faultySource) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func TestExchangePollErrorBacksOff(t *testing.T) {
	source := &faultySource{}
	ex := New(source)

	ex.BeginConsume()
	time.Sleep(60 * time.Millisecond)
	ex.EndConsume()

	// 5 ms backoff per failed poll: a dozen or so polls in 60 ms, not
	// thousands of hot-spin iterations.
	if n := source.pollCount(); n > 30 {
		t.Errorf("failing upstream polled %d times in 60ms", n)
	}
}

func TestExchangeRestartsAfterEndConsume(t *testing.T) {
	source := &scriptedSource{batches: [][]data.BaseData{
		{spyTick("SPY")}, {spyTick("SPY")},
	}}
	ex := New(source)

	spy := &countingHandler{}
	ex.SetHandler("SPY", spy.handle)

	ex.BeginConsume()
	time.Sleep(20 * time.Millisecond)
	ex.EndConsume()

	// The restarted consumer must pick up data arriving after the stop.
	source.mu.Lock()
	source.batches = append(source.batches, []data.BaseData{spyTick("SPY")})
	source.mu.Unlock()

	ex.BeginConsume()
	time.Sleep(20 * time.Millisecond)
	ex.EndConsume()

	if spy.count() != 3 {
		t.Errorf("items dispatched across restart: %d, want 3", spy.count())
	}
}

func TestExchangeBeginConsumeIsIdempotent(t *testing.T) {
	source := &scriptedSource{batches: [][]data.BaseData{{spyTick("SPY")}}}
	ex := New(source)

	spy := &countingHandler{}
	ex.SetHandler("SPY", spy.handle)

	ex.BeginConsume()
	ex.BeginConsume()
	defer ex.EndConsume()
	time.Sleep(20 * time.Millisecond)

	if spy.count() != 1 {
		t.Errorf("item dispatched %d times, want 1", spy.count())
	}
}
