// Package clock abstracts "now" so the whole feed can be driven by a
// controllable time source in tests. Every component that asks "is it
// time to...?" takes a TimeProvider instead of reading the system clock.
package clock

import (
	"sync"
	"time"
)

// TimeProvider is the single-operation time source. Now always returns
// an instant in UTC.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider reads the system clock.
type RealTimeProvider struct{}

func (RealTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// ManualTimeProvider holds a settable instant. It is safe for concurrent
// use; tests typically advance it from the test goroutine while the feed
// reads it from its own.
type ManualTimeProvider struct {
	mu      sync.Mutex
	current time.Time
}

// NewManualTimeProvider starts the clock at the given instant.
func NewManualTimeProvider(start time.Time) *ManualTimeProvider {
	return &ManualTimeProvider{current: start.UTC()}
}

func (m *ManualTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetTime moves the clock to the given instant. Zoned times are converted
// to UTC, so tests can speak in exchange-local wall time.
func (m *ManualTimeProvider) SetTime(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = t.UTC()
}

// Advance moves the clock forward by d.
func (m *ManualTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
}
