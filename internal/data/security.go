package data

import (
	"time"

	"feed_engine/internal/hours"
)

// SubscriptionConfig is the immutable description of one symbol's data
// pipeline. It is built once from a Security and never mutated afterwards.
type SubscriptionConfig struct {
	Symbol              Symbol
	SecurityType        SecurityType
	Resolution          Resolution
	Increment           time.Duration
	TimeZone            *time.Location
	IsCustomData        bool
	FillForward         bool
	ExtendedMarketHours bool
	DataType            DataType
}

// Security is a tradable instrument the algorithm follows, paired with
// the exchange calendar used for market-hours gating.
type Security struct {
	Symbol              Symbol
	Type                SecurityType
	Exchange            *hours.Exchange
	Resolution          Resolution
	FillForward         bool
	ExtendedMarketHours bool
	IsCustomData        bool
}

// SubscriptionConfig derives the immutable pipeline config for the
// security. A security without an exchange yields a nil TimeZone; the
// feed rejects such configs at construction instead of panicking here.
func (s *Security) SubscriptionConfig() SubscriptionConfig {
	dataType := DataTypeTradeBar
	if s.Resolution == ResolutionTick {
		dataType = DataTypeTick
	}
	cfg := SubscriptionConfig{
		Symbol:              s.Symbol,
		SecurityType:        s.Type,
		Resolution:          s.Resolution,
		Increment:           s.Resolution.Increment(),
		IsCustomData:        s.IsCustomData,
		FillForward:         s.FillForward,
		ExtendedMarketHours: s.ExtendedMarketHours,
		DataType:            dataType,
	}
	if s.Exchange != nil {
		cfg.TimeZone = s.Exchange.TimeZone
	}
	return cfg
}
