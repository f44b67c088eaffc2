package bridge

import (
	"context"
	"testing"
	"time"

	"feed_engine/internal/data"
)

func slice(at time.Time) *data.TimeSlice {
	return &data.TimeSlice{Time: at, AlgorithmTime: at}
}

func TestBridgeDeliversInOrder(t *testing.T) {
	br := New(4)
	ctx := context.Background()

	t0 := time.Date(2015, 10, 8, 16, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := br.Add(ctx, slice(t0.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	for i := 0; i < 3; i++ {
		got, err := br.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		want := t0.Add(time.Duration(i) * time.Second)
		if !got.Time.Equal(want) {
			t.Errorf("slice %d: got %v, want %v", i, got.Time, want)
		}
	}
}

func TestBridgeAddBlocksOnBackpressure(t *testing.T) {
	br := New(1)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := br.Add(ctx, slice(now)); err != nil {
		t.Fatalf("first add: %v", err)
	}

	// Second add must block until cancelled.
	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := br.Add(blocked, slice(now)); err == nil {
		t.Fatal("add on a full bridge returned without blocking")
	}
}

func TestBridgeWaitForRoom(t *testing.T) {
	br := New(1)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := br.Add(ctx, slice(now)); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Drain shortly after; WaitForRoom must return once capacity frees.
	go func() {
		time.Sleep(10 * time.Millisecond)
		br.Next(ctx)
	}()

	done := make(chan error, 1)
	go func() { done <- br.WaitForRoom(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitForRoom: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForRoom never returned after drain")
	}
}

func TestBridgeWaitForRoomReturnsWithBacklog(t *testing.T) {
	br := New(2)
	ctx := context.Background()

	// One of two slots used: there is room, so no wait.
	if err := br.Add(ctx, slice(time.Now().UTC())); err != nil {
		t.Fatalf("add: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- br.WaitForRoom(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitForRoom: %v", err)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("WaitForRoom blocked although the bridge had room")
	}
}

func TestBridgeCloseUnblocksConsumer(t *testing.T) {
	br := New(1)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := br.Next(ctx)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	br.Close()
	br.Close() // idempotent

	select {
	case err := <-done:
		if err != ErrClosed {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Next never unblocked after Close")
	}
}
