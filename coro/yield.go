package coro

import "sync/atomic"

// yieldEvery bounds how many synchronously-completing suspension points may
// chain before a forced scheduling round-trip, per spec.md §4.1
// ("Every Nth call (N=1024) forces a yield").
const yieldEvery = 1024

// syncCounter is the process-wide counter of push/pop-style operations that
// might otherwise complete synchronously. It is not goroutine-local (Go has
// no public TLS), so it is a shared atomic counter: the guard against
// unbounded *synchronous* chains only needs to fire periodically across the
// whole process to bound worst-case stack growth from recursive resumption,
// and a shared counter does that just as well as a per-goroutine one while
// staying within stdlib.
var syncCounter atomic.Uint64

// touchSyncGuard increments the guard counter and reports whether the
// caller should force a yield before proceeding synchronously.
func touchSyncGuard() bool {
	n := syncCounter.Add(1)
	return n%yieldEvery == 0
}

// Yield forces a single-step scheduling round-trip: the calling goroutine
// gives up its turn so other runnable goroutines (including a series'
// drain loop) get a chance to run before it continues. It is the Go
// analogue of a single `runtime.Gosched()`-driven suspend/resume cycle.
func Yield() {
	done := make(chan struct{})
	go func() { close(done) }()
	<-done
}

// YieldIfSyncGuardTripped calls Yield iff the internal synchronous-path
// counter has just crossed a multiple of 1024. Awaiters whose fast path
// (Ready()) would otherwise let a coroutine resume itself synchronously,
// forever, should call this before taking that fast path.
func YieldIfSyncGuardTripped() {
	if touchSyncGuard() {
		Yield()
	}
}
