package enumerator

import (
	"time"

	"feed_engine/internal/data"
)

// SubscriptionFilter is the final stage of a per-symbol pipeline. It
// drops data ending past the subscription end and anything carrying a
// foreign symbol.
type SubscriptionFilter struct {
	inner   Enumerator
	symbol  data.Symbol
	utcEnd  time.Time
	current data.BaseData
}

func NewSubscriptionFilter(inner Enumerator, symbol data.Symbol, utcEnd time.Time) *SubscriptionFilter {
	return &SubscriptionFilter{
		inner:  inner,
		symbol: symbol,
		utcEnd: utcEnd,
	}
}

func (f *SubscriptionFilter) Next() bool {
	ok := f.inner.Next()
	cur := f.inner.Current()
	if cur != nil {
		if cur.GetSymbol() != f.symbol || cur.GetEndTime().After(f.utcEnd) {
			cur = nil
		}
	}
	f.current = cur
	return ok
}

func (f *SubscriptionFilter) Current() data.BaseData {
	return f.current
}
