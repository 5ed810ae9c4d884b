package core

// run_limiter.go keeps synchronization runs from overlapping within one
// process. Two runs against the same store would interleave chunk writes
// and report against each other's prior prices, so a trigger that finds
// the slot taken is rejected with ErrSyncInProgress instead of queued.
//
// WaitForDrain supports graceful shutdown by blocking until the active run
// finishes.

import (
	"context"
	"sync"
	"time"
)

// RunLimiter is a semaphore over synchronization runs.
type RunLimiter struct {
	semaphore chan struct{}

	mu     sync.RWMutex
	active int
}

// NewRunLimiter returns a limiter allowing maxConcurrent runs at once
// (at least one).
func NewRunLimiter(maxConcurrent int) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &RunLimiter{semaphore: make(chan struct{}, maxConcurrent)}
}

// TryAcquire takes a slot without blocking. It returns ErrSyncInProgress
// when none is free. The caller must Release a slot it acquired.
func (l *RunLimiter) TryAcquire() error {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	default:
		return ErrSyncInProgress
	}
}

// Release frees a slot taken by TryAcquire.
func (l *RunLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.semaphore
}

// ActiveCount returns the number of runs in progress.
func (l *RunLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until no run is active or ctx is done.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
