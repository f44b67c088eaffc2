package data

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionBatch is one subscription's data drained up to a frontier,
// in the order it was produced.
type SubscriptionBatch struct {
	Symbol Symbol
	Items  []BaseData
}

// TimeSlice is an immutable snapshot of per-symbol data emitted at a
// single frontier instant. Batches preserve the insertion order of the
// producing iteration; nothing in a slice ends after Time.
type TimeSlice struct {
	// Time is the emit instant in UTC.
	Time time.Time
	// AlgorithmTime is the same instant in the algorithm's zone.
	AlgorithmTime time.Time
	Batches       []SubscriptionBatch
	Changes       SecurityChanges
	CashBook      map[string]decimal.Decimal
}

// Count returns the number of data points across all batches.
func (s *TimeSlice) Count() int {
	n := 0
	for _, b := range s.Batches {
		n += len(b.Items)
	}
	return n
}

// Batch returns the batch for a symbol, if the slice carries one.
func (s *TimeSlice) Batch(symbol Symbol) (SubscriptionBatch, bool) {
	for _, b := range s.Batches {
		if b.Symbol == symbol {
			return b, true
		}
	}
	return SubscriptionBatch{}, false
}
