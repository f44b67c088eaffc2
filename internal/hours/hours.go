// Package hours models the open/close calendar of an exchange. The feed
// only ever asks one question: is this exchange trading at instant t?
package hours

import "time"

// Exchange describes the weekly trading window of a venue. Open and close
// are offsets from local midnight in the exchange zone. Venues trading
// around the clock (forex, crypto) set AlwaysOpen instead.
type Exchange struct {
	Name       string
	TimeZone   *time.Location
	AlwaysOpen bool

	// Regular session.
	MarketOpen  time.Duration
	MarketClose time.Duration

	// Extended session (pre + after market). Only consulted when the
	// subscription asked for extended hours.
	ExtendedOpen  time.Duration
	ExtendedClose time.Duration
}

// NewEquityExchange returns a US-equity style calendar: regular session
// 09:30-16:00, extended 04:00-20:00, closed on weekends.
func NewEquityExchange(loc *time.Location) *Exchange {
	return &Exchange{
		Name:          "equity",
		TimeZone:      loc,
		MarketOpen:    9*time.Hour + 30*time.Minute,
		MarketClose:   16 * time.Hour,
		ExtendedOpen:  4 * time.Hour,
		ExtendedClose: 20 * time.Hour,
	}
}

// NewForexExchange returns an always-open calendar.
func NewForexExchange(loc *time.Location) *Exchange {
	return &Exchange{
		Name:       "forex",
		TimeZone:   loc,
		AlwaysOpen: true,
	}
}

// IsOpen reports whether the exchange is trading at instant t. With
// extended set, the extended session bounds apply instead of the regular
// ones.
func (e *Exchange) IsOpen(t time.Time, extended bool) bool {
	if e.AlwaysOpen {
		return true
	}

	local := t.In(e.TimeZone)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.TimeZone)
	sinceMidnight := local.Sub(midnight)

	open, close := e.MarketOpen, e.MarketClose
	if extended {
		open, close = e.ExtendedOpen, e.ExtendedClose
	}
	return sinceMidnight >= open && sinceMidnight < close
}
