package sync

import (
	"context"
	stdsync "sync"
)

// Latch counts down from n to 0; awaiting it blocks until the counter
// reaches zero (spec.md §4.4). The total of CountDown(k) and
// ArriveAndWait(k) calls across all participants must sum to exactly n;
// behavior for under/overcount is unspecified (here the counter may go
// below zero, any value <= 0 counts as reached, and waiters are released
// once, same as a single atomic decrement waking every waiter in one shot).
type Latch struct {
	mu      stdsync.Mutex
	n       int
	waiters []chan struct{}
}

// NewLatch returns a latch counting down from n.
func NewLatch(n int) *Latch {
	return &Latch{n: n}
}

// CountDown decrements the counter by k. If it reaches zero or below,
// every blocked Wait call is released in one shot.
func (l *Latch) CountDown(k int) {
	l.mu.Lock()
	l.n -= k
	var fire []chan struct{}
	if l.n <= 0 && len(l.waiters) > 0 {
		fire = l.waiters
		l.waiters = nil
	}
	l.mu.Unlock()
	for _, w := range fire {
		close(w)
	}
}

// Wait blocks until the counter reaches zero or ctx is done.
func (l *Latch) Wait(ctx context.Context) error {
	l.mu.Lock()
	if l.n <= 0 {
		l.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	l.waiters = append(l.waiters, ch)
	l.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ArriveAndWait is CountDown(k) followed by Wait.
func (l *Latch) ArriveAndWait(ctx context.Context, k int) error {
	l.CountDown(k)
	return l.Wait(ctx)
}

// SyncLatch provides the same counting semantics for plain (non-coroutine)
// callers: Wait blocks the calling OS thread's goroutine directly instead
// of suspending via the address-keyed wait machinery.
type SyncLatch struct {
	wg stdsync.WaitGroup
}

// NewSyncLatch returns a latch counting down from n.
func NewSyncLatch(n int) *SyncLatch {
	l := &SyncLatch{}
	l.wg.Add(n)
	return l
}

// CountDown decrements the counter by k.
func (l *SyncLatch) CountDown(k int) {
	for i := 0; i < k; i++ {
		l.wg.Done()
	}
}

// Wait blocks until the counter reaches zero.
func (l *SyncLatch) Wait() {
	l.wg.Wait()
}

// ArriveAndWait is CountDown(k) followed by Wait.
func (l *SyncLatch) ArriveAndWait(k int) {
	l.CountDown(k)
	l.Wait()
}
