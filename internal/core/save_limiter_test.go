package core

import (
	"context"
	"testing"
	"time"
)

func TestSaveLimiter_AcquireRelease(t *testing.T) {
	l := NewSaveLimiter(2, time.Second)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if got := l.Active(); got != 2 {
		t.Errorf("Active = %d, want 2", got)
	}

	l.Release()
	l.Release()
	if got := l.Active(); got != 0 {
		t.Errorf("Active after Release = %d, want 0", got)
	}
}

func TestSaveLimiter_BlocksWhenFull(t *testing.T) {
	l := NewSaveLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer l.Release()

	start := time.Now()
	err := l.Acquire(ctx)
	if err != ErrTooManySaves {
		t.Errorf("expected ErrTooManySaves, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("returned after %v, expected to wait", elapsed)
	}
}

func TestSaveLimiter_ContextCancelled(t *testing.T) {
	l := NewSaveLimiter(1, time.Second)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Acquire(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSaveLimiter_WaitForDrain(t *testing.T) {
	l := NewSaveLimiter(1, time.Second)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		l.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain: %v", err)
	}
}
