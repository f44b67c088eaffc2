package enumerator

import (
	"testing"
	"time"

	"feed_engine/internal/clock"
	"feed_engine/internal/data"
	"feed_engine/internal/hours"

	"github.com/shopspring/decimal"
)

func makeBar(symbol string, start time.Time, close float64, period time.Duration) *data.TradeBar {
	price := decimal.NewFromFloat(close)
	return &data.TradeBar{
		Symbol: data.Symbol(symbol),
		Time:   start,
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: decimal.NewFromInt(100),
		Period: period,
	}
}

func TestFillForwardSynthesizesDuringQuietInterval(t *testing.T) {
	// Thursday 2015-10-08 12:00 New York: market open.
	barStart := time.Date(2015, 10, 8, 12, 0, 0, 0, nycZone)
	manual := clock.NewManualTimeProvider(barStart.Add(time.Minute))
	exchange := hours.NewEquityExchange(nycZone)

	inner := NewEnqueueable()
	ff := NewFillForward(inner, manual, exchange, time.Minute, false,
		time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))

	// 1. The real bar passes through and becomes the fill-forward base.
	real := makeBar("SPY", barStart, 199.50, time.Minute)
	inner.Enqueue(real)
	ff.Next()
	if ff.Current() != data.BaseData(real) {
		t.Fatalf("expected the real bar, got %v", ff.Current())
	}

	// 2. No inner data and no market time elapsed: nothing to emit yet.
	ff.Next()
	if ff.Current() != nil {
		t.Fatalf("synthesized too early: %v", ff.Current())
	}

	// 3. One step later a synthetic clone appears.
	manual.Advance(time.Minute)
	ff.Next()
	fill, ok := ff.Current().(*data.TradeBar)
	if !ok {
		t.Fatalf("expected a synthetic bar, got %v", ff.Current())
	}
	if !fill.IsFillForward {
		t.Error("synthetic bar not flagged as fill-forward")
	}
	if !fill.Time.Equal(barStart.Add(time.Minute)) {
		t.Errorf("synthetic start: got %v, want %v", fill.Time, barStart.Add(time.Minute))
	}
	if !fill.Close.Equal(real.Close) {
		t.Errorf("synthetic close: got %s, want %s", fill.Close, real.Close)
	}
	if !fill.Volume.IsZero() {
		t.Errorf("synthetic bar carries volume: %s", fill.Volume)
	}
}

func TestFillForwardRespectsMarketHours(t *testing.T) {
	// 19:59 New York: regular session closed.
	barStart := time.Date(2015, 10, 8, 19, 59, 0, 0, nycZone)
	manual := clock.NewManualTimeProvider(barStart.Add(10 * time.Minute))
	exchange := hours.NewEquityExchange(nycZone)

	inner := NewEnqueueable()
	ff := NewFillForward(inner, manual, exchange, time.Minute, false,
		time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))

	inner.Enqueue(makeBar("SPY", barStart, 199.50, time.Minute))
	ff.Next() // real bar

	ff.Next()
	if ff.Current() != nil {
		t.Fatalf("synthesized outside market hours: %v", ff.Current())
	}
}

func TestFillForwardExtendedHours(t *testing.T) {
	// Same closed-regular-session window, but extended hours requested.
	barStart := time.Date(2015, 10, 8, 18, 0, 0, 0, nycZone)
	manual := clock.NewManualTimeProvider(barStart.Add(2 * time.Minute))
	exchange := hours.NewEquityExchange(nycZone)

	inner := NewEnqueueable()
	ff := NewFillForward(inner, manual, exchange, time.Minute, true,
		time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))

	inner.Enqueue(makeBar("SPY", barStart, 199.50, time.Minute))
	ff.Next() // real bar

	ff.Next()
	if ff.Current() == nil {
		t.Fatal("extended-hours subscription must fill during the extended session")
	}
}

func TestFillForwardStopsAtSubscriptionEnd(t *testing.T) {
	barStart := time.Date(2015, 10, 8, 12, 0, 0, 0, nycZone)
	manual := clock.NewManualTimeProvider(barStart.Add(time.Hour))
	exchange := hours.NewEquityExchange(nycZone)

	// Subscription ends right where the real bar does.
	utcEnd := barStart.Add(time.Minute).UTC()
	inner := NewEnqueueable()
	ff := NewFillForward(inner, manual, exchange, time.Minute, false, utcEnd)

	inner.Enqueue(makeBar("SPY", barStart, 199.50, time.Minute))
	ff.Next() // real bar

	ff.Next()
	if ff.Current() != nil {
		t.Fatalf("synthesized past subscription end: %v", ff.Current())
	}
}

func TestFillForwardBridgesGapBeforeRetainedBar(t *testing.T) {
	barStart := time.Date(2015, 10, 8, 12, 0, 0, 0, nycZone)
	manual := clock.NewManualTimeProvider(barStart.Add(3 * time.Minute))
	exchange := hours.NewEquityExchange(nycZone)

	inner := NewEnqueueable()
	ff := NewFillForward(inner, manual, exchange, time.Minute, false,
		time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))

	first := makeBar("SPY", barStart, 199.50, time.Minute)
	// Two quiet minutes, then trading resumes.
	late := makeBar("SPY", barStart.Add(3*time.Minute), 200.00, time.Minute)
	inner.Enqueue(first)
	inner.Enqueue(late)

	ff.Next()
	if ff.Current() != data.BaseData(first) {
		t.Fatalf("expected first bar, got %v", ff.Current())
	}

	// The gap is bridged one synthetic step at a time while the late bar
	// is retained.
	for i := 1; i <= 2; i++ {
		ff.Next()
		fill, ok := ff.Current().(*data.TradeBar)
		if !ok || !fill.IsFillForward {
			t.Fatalf("step %d: expected synthetic bar, got %v", i, ff.Current())
		}
		want := barStart.Add(time.Duration(i) * time.Minute)
		if !fill.Time.Equal(want) {
			t.Fatalf("step %d: start %v, want %v", i, fill.Time, want)
		}
	}

	ff.Next()
	if ff.Current() != data.BaseData(late) {
		t.Fatalf("expected the retained real bar, got %v", ff.Current())
	}
}
