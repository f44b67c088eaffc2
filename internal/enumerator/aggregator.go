package enumerator

import (
	"sync"
	"time"

	"feed_engine/internal/clock"
	"feed_engine/internal/data"
)

// TickAggregator folds ticks into one OHLCV bar per barSize window and
// exposes the closed bars as a lazy sequence. At any moment there is at
// most one working bar; it lives in a single mutex-guarded cell written
// by the dispatcher thread and detached by the frontier thread.
type TickAggregator struct {
	clock    clock.TimeProvider
	barSize  time.Duration
	timeZone *time.Location

	mu      sync.Mutex
	working *data.TradeBar
	// priced is false until the working bar has seen a non-zero last
	// price. Quote-only ticks contribute volume but never O/H/L/C.
	priced  bool
	current data.BaseData
}

func NewTickAggregator(tp clock.TimeProvider, barSize time.Duration, tz *time.Location) *TickAggregator {
	return &TickAggregator{
		clock:    tp,
		barSize:  barSize,
		timeZone: tz,
	}
}

// ProcessTick folds one tick into the working bar, creating the bar if
// none exists. The bar start is the current local time rounded down to
// the bar size, so ticks arriving out of wall-clock order within a
// window still land in the same bar.
func (a *TickAggregator) ProcessTick(tick *data.Tick) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.working == nil {
		start := data.RoundDown(a.clock.Now().In(a.timeZone), a.barSize)
		a.working = &data.TradeBar{
			Symbol: tick.Symbol,
			Time:   start,
			Period: a.barSize,
		}
		a.priced = false
	}

	bar := a.working
	bar.Volume = bar.Volume.Add(tick.Quantity)

	if tick.LastPrice.IsZero() {
		return
	}

	if !a.priced {
		bar.Open = tick.LastPrice
		bar.High = tick.LastPrice
		bar.Low = tick.LastPrice
		bar.Close = tick.LastPrice
		a.priced = true
		return
	}

	if tick.LastPrice.GreaterThan(bar.High) {
		bar.High = tick.LastPrice
	}
	if tick.LastPrice.LessThan(bar.Low) {
		bar.Low = tick.LastPrice
	}
	bar.Close = tick.LastPrice
}

// Next releases the working bar once its end time has passed the clock.
// Always returns true: a live aggregator never terminates.
func (a *TickAggregator) Next() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.working != nil && !a.working.GetEndTime().After(a.clock.Now()) {
		a.current = a.working
		a.working = nil
		a.priced = false
	} else {
		a.current = nil
	}
	return true
}

func (a *TickAggregator) Current() data.BaseData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}
