package core

// save_limiter.go bounds how many saves run at once. Each save holds a
// database connection for every record it writes; when all slots are taken,
// a save waits up to maxWait and then fails with ErrTooManySaves.

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrTooManySaves is returned when no save slot frees up in time.
var ErrTooManySaves = errors.New("too many saves in progress")

// SaveLimiter is a counting semaphore for saves.
type SaveLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// DefaultSaveWait applies when no wait is configured.
const DefaultSaveWait = 10 * time.Second

// NewSaveLimiter allows at most maxConcurrent saves at once.
func NewSaveLimiter(maxConcurrent int, maxWait time.Duration) *SaveLimiter {
	if maxWait <= 0 {
		maxWait = DefaultSaveWait
	}
	return &SaveLimiter{
		slots:   make(chan struct{}, max(maxConcurrent, 1)),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller must Release it.
func (l *SaveLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-waitCtx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrTooManySaves
	}
}

// Release frees a slot taken by Acquire.
func (l *SaveLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Active returns the number of saves holding a slot.
func (l *SaveLimiter) Active() int { return int(l.active.Load()) }

// WaitForDrain blocks until no save is running or ctx is done. Used on
// shutdown.
func (l *SaveLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.Active() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
