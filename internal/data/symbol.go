package data

import "time"

// Symbol is the routing key for everything in the feed. It is an opaque
// identifier with value equality, so it can be used directly as a map key.
type Symbol string

func (s Symbol) String() string {
	return string(s)
}

// SecurityType classifies the instrument behind a symbol.
// Symbol + SecurityType together form the routing identity of a subscription.
type SecurityType int

const (
	SecurityTypeBase SecurityType = iota
	SecurityTypeEquity
	SecurityTypeForex
)

func (t SecurityType) String() string {
	switch t {
	case SecurityTypeEquity:
		return "equity"
	case SecurityTypeForex:
		return "forex"
	default:
		return "base"
	}
}

// Resolution is the requested granularity of a subscription.
type Resolution int

const (
	ResolutionTick Resolution = iota
	ResolutionSecond
	ResolutionMinute
	ResolutionHour
	ResolutionDaily
)

// Increment returns the bar duration for the resolution. Tick has no
// duration; callers treat a zero increment as "raw ticks".
func (r Resolution) Increment() time.Duration {
	switch r {
	case ResolutionSecond:
		return time.Second
	case ResolutionMinute:
		return time.Minute
	case ResolutionHour:
		return time.Hour
	case ResolutionDaily:
		return 24 * time.Hour
	default:
		return 0
	}
}

func (r Resolution) String() string {
	switch r {
	case ResolutionTick:
		return "tick"
	case ResolutionSecond:
		return "second"
	case ResolutionMinute:
		return "minute"
	case ResolutionHour:
		return "hour"
	case ResolutionDaily:
		return "daily"
	default:
		return "unknown"
	}
}

// DataType discriminates the payload kind a subscription carries.
type DataType int

const (
	DataTypeTradeBar DataType = iota
	DataTypeTick
	DataTypeCoarseFundamental
)

// RoundDown aligns t to the previous multiple of d, anchored on the Unix
// epoch. Sub-hour increments align identically in any zone with a whole
// minute UTC offset, which covers every exchange zone we route.
func RoundDown(t time.Time, d time.Duration) time.Time {
	if d <= 0 {
		return t
	}
	excess := time.Duration(t.UnixNano()) % d
	if excess < 0 {
		excess += d
	}
	return t.Add(-excess)
}
