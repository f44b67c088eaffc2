package data

import (
	"time"

	"github.com/shopspring/decimal"
)

// BaseData is the polymorphic market event flowing through the feed.
// Concrete variants are *Tick, *TradeBar and *CoarseFundamentalList.
// Every item carries a time interval: GetEndTime is never before GetTime,
// and for bars the difference is exactly the bar period.
type BaseData interface {
	GetSymbol() Symbol
	// GetTime is the start of the interval, expressed in the zone of the
	// subscription that produced it.
	GetTime() time.Time
	// GetEndTime is the instant at which the item is complete and may be
	// released past the frontier.
	GetEndTime() time.Time
	// GetValue is the representative price of the item (last trade price
	// for ticks, close for bars, zero for auxiliary payloads).
	GetValue() decimal.Decimal
}

// Tick is a single market event: a trade, a quote, or both.
// A quote-only tick has a zero LastPrice and contributes nothing to
// O/H/L/C during aggregation.
type Tick struct {
	Symbol    Symbol          `json:"symbol"`
	Time      time.Time       `json:"time"`
	BidPrice  decimal.Decimal `json:"bid_price"`
	AskPrice  decimal.Decimal `json:"ask_price"`
	LastPrice decimal.Decimal `json:"last_price"`
	Quantity  decimal.Decimal `json:"quantity"`
}

func (t *Tick) GetSymbol() Symbol         { return t.Symbol }
func (t *Tick) GetTime() time.Time        { return t.Time }
func (t *Tick) GetEndTime() time.Time     { return t.Time }
func (t *Tick) GetValue() decimal.Decimal { return t.LastPrice }

// TradeBar is an OHLCV aggregate over a fixed window for one symbol.
type TradeBar struct {
	Symbol Symbol          `json:"symbol"`
	Time   time.Time       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
	Period time.Duration   `json:"period"`
	// IsFillForward marks bars synthesized during quiet intervals.
	IsFillForward bool `json:"is_fill_forward,omitempty"`
}

func (b *TradeBar) GetSymbol() Symbol         { return b.Symbol }
func (b *TradeBar) GetTime() time.Time        { return b.Time }
func (b *TradeBar) GetEndTime() time.Time     { return b.Time.Add(b.Period) }
func (b *TradeBar) GetValue() decimal.Decimal { return b.Close }

// ShiftForward clones the bar one fill-forward step ahead. The clone keeps
// the previous prices, carries no volume, and is flagged synthetic.
func (b *TradeBar) ShiftForward(step time.Duration) *TradeBar {
	clone := *b
	clone.Time = b.Time.Add(step)
	clone.Volume = decimal.Zero
	clone.IsFillForward = true
	return &clone
}

// CoarseFundamental is one row of a universe-selection payload.
type CoarseFundamental struct {
	Symbol       Symbol          `json:"symbol"`
	Time         time.Time       `json:"time"`
	Price        decimal.Decimal `json:"price"`
	Volume       decimal.Decimal `json:"volume"`
	DollarVolume decimal.Decimal `json:"dollar_volume"`
}

func (c *CoarseFundamental) GetSymbol() Symbol         { return c.Symbol }
func (c *CoarseFundamental) GetTime() time.Time        { return c.Time }
func (c *CoarseFundamental) GetEndTime() time.Time     { return c.Time }
func (c *CoarseFundamental) GetValue() decimal.Decimal { return c.Price }

// CoarseFundamentalList is the bulk payload delivered to a universe
// subscription. It is routed by the universe pseudo-symbol.
type CoarseFundamentalList struct {
	Symbol Symbol               `json:"symbol"`
	Time   time.Time            `json:"time"`
	Coarse []*CoarseFundamental `json:"coarse"`
}

func (l *CoarseFundamentalList) GetSymbol() Symbol         { return l.Symbol }
func (l *CoarseFundamentalList) GetTime() time.Time        { return l.Time }
func (l *CoarseFundamentalList) GetEndTime() time.Time     { return l.Time }
func (l *CoarseFundamentalList) GetValue() decimal.Decimal { return decimal.Zero }
