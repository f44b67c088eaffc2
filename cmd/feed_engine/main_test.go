package main

import (
	"testing"
	"time"
)

func TestMarketZoneObservesDaylightSaving(t *testing.T) {
	if _, err := time.LoadLocation("America/New_York"); err != nil {
		t.Skip("host has no tz database")
	}

	loc := marketZone()
	_, winter := time.Date(2026, 1, 15, 17, 0, 0, 0, time.UTC).In(loc).Zone()
	_, summer := time.Date(2026, 7, 15, 17, 0, 0, 0, time.UTC).In(loc).Zone()

	if winter != -5*3600 {
		t.Errorf("winter offset: got %d, want %d", winter, -5*3600)
	}
	if summer != -4*3600 {
		t.Errorf("summer offset: got %d, want %d", summer, -4*3600)
	}
}
