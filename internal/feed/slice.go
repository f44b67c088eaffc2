package feed

import (
	"time"

	"feed_engine/internal/data"

	"github.com/shopspring/decimal"
)

// NewTimeSlice freezes the data collected in one frontier pass into an
// immutable slice. Batches keep the insertion order of the producing
// iteration; the cash book is snapshotted so later mutation by the
// algorithm cannot leak into an already emitted slice.
func NewTimeSlice(emitTime time.Time, tz *time.Location, cashBook map[string]decimal.Decimal,
	batches []data.SubscriptionBatch, changes data.SecurityChanges) *data.TimeSlice {

	frozenCash := make(map[string]decimal.Decimal, len(cashBook))
	for currency, amount := range cashBook {
		frozenCash[currency] = amount
	}

	frozenBatches := make([]data.SubscriptionBatch, len(batches))
	copy(frozenBatches, batches)

	algorithmTime := emitTime
	if tz != nil {
		algorithmTime = emitTime.In(tz)
	}

	return &data.TimeSlice{
		Time:          emitTime.UTC(),
		AlgorithmTime: algorithmTime,
		Batches:       frozenBatches,
		Changes:       changes,
		CashBook:      frozenCash,
	}
}
