package enumerator

import (
	"time"

	"feed_engine/internal/clock"
	"feed_engine/internal/data"
	"feed_engine/internal/hours"
)

// FillForward wraps an inner bar sequence and synthesizes bars while the
// inner source is silent but market time has advanced. Synthetic bars are
// only emitted while the exchange is open and never past the subscription
// end; outside hours the enumerator skips silently.
type FillForward struct {
	inner      Enumerator
	clock      clock.TimeProvider
	exchange   *hours.Exchange
	resolution time.Duration
	extended   bool
	utcEnd     time.Time

	previous *data.TradeBar
	// pending holds a real bar that arrived past the expected window; it
	// is retained while synthetic bars are emitted to bridge the gap.
	pending data.BaseData
	current data.BaseData
}

func NewFillForward(inner Enumerator, tp clock.TimeProvider, exchange *hours.Exchange,
	resolution time.Duration, extended bool, utcEnd time.Time) *FillForward {
	return &FillForward{
		inner:      inner,
		clock:      tp,
		exchange:   exchange,
		resolution: resolution,
		extended:   extended,
		utcEnd:     utcEnd,
	}
}

func (f *FillForward) Next() bool {
	if f.pending == nil {
		if !f.inner.Next() {
			// Inner terminated; drain nothing further.
			f.current = nil
			return false
		}
		f.pending = f.inner.Current()
	}
	next := f.pending

	// Nothing to fill from until the first real bar has been seen.
	if f.previous == nil {
		f.emit(next)
		return true
	}

	expected := f.previous.GetEndTime().Add(f.resolution)

	if next != nil {
		if !next.GetEndTime().After(expected) {
			// Inner data is contiguous; pass it through.
			f.emit(next)
			return true
		}
		if f.shouldFill(expected) {
			// Gap before the retained bar: bridge it one step at a time.
			f.synthesize()
			return true
		}
		// Market was closed over the gap; skip ahead to the real bar.
		f.emit(next)
		return true
	}

	if f.shouldFill(expected) && !expected.After(f.clock.Now()) {
		f.synthesize()
		return true
	}

	f.current = nil
	return true
}

func (f *FillForward) Current() data.BaseData {
	return f.current
}

// emit passes a real inner item through and tracks it as the new
// fill-forward base when it is a bar.
func (f *FillForward) emit(item data.BaseData) {
	f.current = item
	f.pending = nil
	if bar, ok := item.(*data.TradeBar); ok {
		f.previous = bar
	}
}

func (f *FillForward) synthesize() {
	fill := f.previous.ShiftForward(f.resolution)
	f.current = fill
	f.previous = fill
}

// shouldFill gates synthesis: the synthetic window must start inside
// market hours and must not extend past the subscription end.
func (f *FillForward) shouldFill(expected time.Time) bool {
	if expected.After(f.utcEnd) {
		return false
	}
	barStart := expected.Add(-f.resolution)
	return f.exchange.IsOpen(barStart, f.extended)
}
