package sync

import (
	"context"
	stdsync "sync"

	"github.com/joeycumines/go-coro/coro/wait"
)

// FutureState is the lifecycle state of a [Future] (spec.md §4.6).
type FutureState int

const (
	// NotSet means neither Promise.Set nor an error outcome has happened
	// yet.
	NotSet FutureState = iota
	// Ready means a value was set via Promise.Set.
	Ready
	// Timeout is a transient, read-only outcome returned by Wait/WaitFor
	// when the deadline elapses; it is never the Future's persisted state.
	Timeout
	// Aborted means the runtime is shutting down.
	Aborted
	// Broken means the Promise was destroyed/dropped without ever being
	// set (the producer side disappeared).
	Broken
	// Exception means the promise was completed with an error instead of
	// a value.
	Exception
)

func (s FutureState) String() string {
	switch s {
	case NotSet:
		return "NOTSET"
	case Ready:
		return "READY"
	case Timeout:
		return "TIMEOUT"
	case Aborted:
		return "ABORTED"
	case Broken:
		return "BROKEN"
	case Exception:
		return "EXCEPTION"
	default:
		return "UNKNOWN"
	}
}

// futureCore is the shared state between a Future and its Promise.
type futureCore[T any] struct {
	mu       stdsync.Mutex
	once     stdsync.Once
	state    FutureState
	value    T
	err      error
	callback func(FutureState, T, error)
}

// Future is a read-only view of a single-shot value cell (spec.md §4.6).
type Future[T any] struct {
	core *futureCore[T]
}

// Promise is the write side of a Future. Set/SetError/Abort/Break may each
// be called at most once, effectively (set-once is enforced via a
// once-flag; later calls are no-ops).
type Promise[T any] struct {
	core *futureCore[T]
}

// NewFuture returns a connected (Future, Promise) pair.
func NewFuture[T any]() (Future[T], Promise[T]) {
	c := &futureCore[T]{}
	return Future[T]{core: c}, Promise[T]{core: c}
}

func (c *futureCore[T]) complete(state FutureState, val T, err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.state = state
		c.value = val
		c.err = err
		cb := c.callback
		c.callback = nil
		c.mu.Unlock()
		if cb != nil {
			cb(state, val, err)
		}
		wait.CancelAllByAddr(c)
	})
}

// Set completes the promise with a value.
func (p Promise[T]) Set(val T) { p.core.complete(Ready, val, nil) }

// SetError completes the promise in the Exception state.
func (p Promise[T]) SetError(err error) { p.core.complete(Exception, *new(T), err) }

// Abort completes the promise in the Aborted state (runtime shutdown).
func (p Promise[T]) Abort() { p.core.complete(Aborted, *new(T), nil) }

// Break completes the promise in the Broken state: the producer side
// disappeared without setting a value. Call this from whatever tears down
// the producer (e.g. a defer) if Set/SetError/Abort was never reached.
func (p Promise[T]) Break() { p.core.complete(Broken, *new(T), nil) }

// State returns the future's current state.
func (f Future[T]) State() FutureState {
	f.core.mu.Lock()
	defer f.core.mu.Unlock()
	return f.core.state
}

// SetCallback registers a callback that fires once, at set-time, with the
// final state/value/error. If the future is already settled, it fires
// synchronously and immediately (spec.md §4.6).
func (f Future[T]) SetCallback(cb func(FutureState, T, error)) {
	f.core.mu.Lock()
	if f.core.state != NotSet {
		state, val, err := f.core.state, f.core.value, f.core.err
		f.core.mu.Unlock()
		cb(state, val, err)
		return
	}
	f.core.callback = cb
	f.core.mu.Unlock()
}

// Wait blocks until the future settles or ctx is done.
func (f Future[T]) Wait(ctx context.Context) (FutureState, T, error) {
	return f.WaitFor(ctx, wait.Infinite())
}

// WaitFor blocks until the future settles, helper's deadline elapses, or
// ctx is done, implemented atop address-keyed sleep using the future's own
// address (spec.md §4.6).
func (f Future[T]) WaitFor(ctx context.Context, helper wait.TimedWaitHelper) (FutureState, T, error) {
	f.core.mu.Lock()
	if f.core.state != NotSet {
		state, val, err := f.core.state, f.core.value, f.core.err
		f.core.mu.Unlock()
		return state, val, err
	}
	f.core.mu.Unlock()

	code, werr := wait.Sleep(ctx, f.core, helper, false)

	f.core.mu.Lock()
	defer f.core.mu.Unlock()
	if f.core.state != NotSet {
		return f.core.state, f.core.value, f.core.err
	}
	switch code {
	case wait.Success:
		return Timeout, *new(T), nil
	case wait.Aborted:
		return Aborted, *new(T), werr
	default:
		return NotSet, *new(T), werr
	}
}

// DetachTask glues a coroutine's (value, error) result into a promise: the
// result is Set on success, SetError on error, and any recovered panic is
// reported via SetError: a panic value that is an error is passed through
// as-is, any other value becomes an error with a fixed message. Run fn
// as a goroutine (e.g. via coro.Go) and call DetachTask from inside it.
func DetachTask[T any](p Promise[T], fn func() (T, error)) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			p.SetError(panicAsError(r))
			_ = zero
		}
	}()
	val, err := fn()
	if err != nil {
		p.SetError(err)
		return
	}
	p.Set(val)
}

type panicErr struct{ v any }

func (e panicErr) Error() string { return "coro/sync: panic in detached task" }

func panicAsError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return panicErr{v: v}
}
