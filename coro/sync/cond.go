// Package sync provides coroutine-friendly synchronization primitives
// layered on [github.com/joeycumines/go-coro/coro/wait]'s address-keyed
// sleep: a condition variable, a mutex, a latch pair, a bounded double-
// ended channel, and a future/promise pair (spec.md §4.3–§4.6).
package sync

import (
	"context"

	"github.com/joeycumines/go-coro/coro/wait"
)

// Outcome is the result of a [Cond.Wait] call.
type Outcome int

const (
	// WaitSuccess means the predicate held, either immediately or after a
	// notify woke the waiter and re-checking it returned true.
	WaitSuccess Outcome = iota
	// WaitTimeout means the deadline elapsed before the predicate held.
	WaitTimeout
	// WaitAborted means the wait's context was canceled (process
	// shutdown, in the spec's terms).
	WaitAborted
)

// Locker is satisfied by *[Mutex] as well as stdlib sync.Locker, so Cond
// can be used with either a coroutine [Mutex] or a plain mutex guarding
// plain (non-suspending) critical sections.
type Locker interface {
	Lock()
	Unlock()
}

// Cond is a condition variable implemented on top of address-keyed sleep
// (spec.md §4.3). The zero value is not usable; use [NewCond].
type Cond struct {
	_ [0]func() // prevent comparison / copy by value being meaningful
	_ byte      // non-zero size, so every *Cond is a distinct wait address
}

// NewCond returns a ready-to-use condition variable. Each Cond picks its
// own address (itself) to register sleeps under; addresses must stay
// unique while anyone is asleep on them, which holds here because a *Cond
// is never recycled while referenced.
func NewCond() *Cond {
	return &Cond{}
}

// Wait implements the protocol in spec.md §4.3: the caller must hold
// locker. Wait releases it before suspending and reacquires it before
// returning, in all cases.
func (c *Cond) Wait(ctx context.Context, locker Locker, predicate func() bool, helper wait.TimedWaitHelper) (Outcome, error) {
	insertHead := false
	for {
		if predicate() {
			return WaitSuccess, nil
		}
		if d, ok := helper.Remaining(); ok && d <= 0 {
			return WaitTimeout, nil
		}

		locker.Unlock()
		code, err := wait.Sleep(ctx, c, helper, insertHead)
		locker.Lock()

		switch code {
		case wait.Success:
			// The timer fired naturally: no notifier woke us.
			return WaitTimeout, nil
		case wait.Canceled:
			// A notifier woke us; re-check the predicate. Subsequent
			// re-waits preserve queue position via insertHead.
			insertHead = true
			continue
		case wait.Aborted:
			return WaitAborted, err
		default:
			return WaitAborted, err
		}
	}
}

// Notify wakes up to n waiters in address-queue (FIFO) order.
func (c *Cond) Notify(n int) int {
	return wait.CancelByAddr(c, n)
}

// NotifyAll wakes every current waiter.
func (c *Cond) NotifyAll() int {
	return wait.CancelAllByAddr(c)
}
