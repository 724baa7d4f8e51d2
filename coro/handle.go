package coro

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Handle is the Go realization of the spec's coroutine-handle/promise pair:
// it carries the pieces a C++20 coroutine promise would hold implicitly —
// the current series, the caller to resume, a detached flag, an opaque
// context bag, and a cell for an unobserved panic. Since Go coroutines are
// goroutines, Handle does not encapsulate resume/destroy directly; instead
// it threads the "current series" explicitly down a call chain, as
// recommended for non-C++ ports (see package doc).
type Handle struct {
	series   *Series
	previous *Handle
	detached atomic.Bool

	mu       sync.Mutex
	ctx      any
	panicVal any
	observed bool
}

// NewHandle creates a root handle bound to series, with no caller to
// resume. Pass nil for series to have the handle create one lazily on its
// first suspension (mirrors "creates a fresh series" in spec.md §4.1).
func NewHandle(series *Series) *Handle {
	return &Handle{series: series}
}

// Child returns a new handle for a coroutine awaited by h: it adopts h's
// series and stores h as the previous handle to resume, per spec.md §4.1
// ("C's promise stores P's handle as previous_handle and adopts P's
// series").
func (h *Handle) Child() *Handle {
	return &Handle{series: h.series, previous: h}
}

// Series returns the coroutine's current series, creating one if absent.
func (h *Handle) Series() *Series {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.series == nil {
		h.series = NewSeries()
	}
	return h.series
}

// Previous returns the caller's handle, or nil at the root.
func (h *Handle) Previous() *Handle { return h.previous }

// Detach marks the coroutine as detached: the substrate drops the frame at
// final suspend instead of resuming a previous handle (spec.md §4.1).
func (h *Handle) Detach() { h.detached.Store(true) }

// Detached reports whether Detach was called.
func (h *Handle) Detached() bool { return h.detached.Load() }

// SetContext stores an opaque value that extends captured lifetime beyond
// the creating frame (spec.md §3, "Coroutine handle").
func (h *Handle) SetContext(v any) {
	h.mu.Lock()
	h.ctx = v
	h.mu.Unlock()
}

// Context returns the value set by SetContext, or nil.
func (h *Handle) Context() any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ctx
}

// StorePanic records a recovered panic on the handle. A promise with a
// stored exception that is never Observed before the handle is discarded is
// a fatal termination (spec.md §3 invariant); callers that run detached
// coroutines must arrange to call StorePanic from a recover() and then
// either Observe the value or allow FatalIfUnobserved to terminate.
func (h *Handle) StorePanic(v any) {
	h.mu.Lock()
	h.panicVal = v
	h.observed = false
	h.mu.Unlock()
}

// Observe consumes and returns any stored panic value, marking it observed
// so FatalIfUnobserved becomes a no-op for it.
func (h *Handle) Observe() (v any, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panicVal == nil {
		return nil, false
	}
	v, ok = h.panicVal, true
	h.panicVal = nil
	h.observed = true
	return
}

// FatalIfUnobserved terminates the process if a panic was stored but never
// Observed. Call it when a handle's frame is about to be discarded (e.g.
// at the end of a detached coroutine's goroutine).
func (h *Handle) FatalIfUnobserved() {
	h.mu.Lock()
	v, observed := h.panicVal, h.observed
	h.mu.Unlock()
	if v != nil && !observed {
		logf(LevelError, "coro: unobserved panic in detached coroutine frame, terminating: %v", v)
		panic(fmt.Errorf("coro: fatal: unhandled panic never observed before frame destruction: %v", v))
	}
}
