package sync

import (
	"context"
	stdsync "sync"

	"github.com/joeycumines/go-coro/coro/wait"
)

// ErrClosed is returned by Deque operations that cannot proceed because the
// deque is closed.
var ErrClosed = errClosed{}

type errClosed struct{}

func (errClosed) Error() string { return "coro/sync: deque closed" }

// ring is a slice-backed circular buffer, generalizing the power-of-two
// ring buffer in catrate/ring.go to an arbitrary fixed capacity (the
// spec's max_size need not be a power of two).
type ring[T any] struct {
	s    []T
	r, n int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{s: make([]T, capacity)}
}

func (x *ring[T]) Len() int { return x.n }
func (x *ring[T]) Cap() int { return len(x.s) }

func (x *ring[T]) idx(off int) int { return (x.r + off) % len(x.s) }

func (x *ring[T]) pushBack(v T) {
	x.s[x.idx(x.n)] = v
	x.n++
}

func (x *ring[T]) pushFront(v T) {
	x.r = (x.r - 1 + len(x.s)) % len(x.s)
	x.s[x.r] = v
	x.n++
}

func (x *ring[T]) popFront() T {
	v := x.s[x.r]
	var zero T
	x.s[x.r] = zero
	x.r = (x.r + 1) % len(x.s)
	x.n--
	return v
}

func (x *ring[T]) popBack() T {
	i := x.idx(x.n - 1)
	v := x.s[i]
	var zero T
	x.s[i] = zero
	x.n--
	return v
}

// Deque is a bounded double-ended queue with close semantics (spec.md
// §4.5): up to maxSize elements, two condition variables (push-side,
// pop-side), and front/back variants of every operation.
type Deque[T any] struct {
	mu      stdsync.Mutex
	buf     *ring[T]
	maxSize int
	closed  bool

	pushCond    *Cond
	popCond     *Cond
	pushWaiting int
	popWaiting  int
}

// NewDeque returns an empty, open deque with the given bound.
func NewDeque[T any](maxSize int) *Deque[T] {
	if maxSize <= 0 {
		panic("coro/sync: deque: maxSize must be positive")
	}
	return &Deque[T]{
		buf:      newRing[T](maxSize),
		maxSize:  maxSize,
		pushCond: NewCond(),
		popCond:  NewCond(),
	}
}

// Size returns the current number of elements.
func (d *Deque[T]) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.Len()
}

// Closed reports whether Close has been called (and Reopen has not since).
func (d *Deque[T]) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// notify wakes up to min(count, waiting) waiters on the given
// side's address, after the caller has already released d.mu — this keeps
// the wake-up outside the lock to avoid convoy effects (spec.md §4.5
// invariant).
func notify(c *Cond, count, waiting int) {
	n := count
	if waiting < n {
		n = waiting
	}
	if n > 0 {
		c.Notify(n)
	}
}

func (d *Deque[T]) notifyPushers(freed int) {
	d.mu.Lock()
	waiting := d.pushWaiting
	d.mu.Unlock()
	notify(d.pushCond, freed, waiting)
}

func (d *Deque[T]) notifyPoppers(added int) {
	d.mu.Lock()
	waiting := d.popWaiting
	d.mu.Unlock()
	notify(d.popCond, added, waiting)
}

func (d *Deque[T]) notifyAllClosed() {
	d.pushCond.NotifyAll()
	d.popCond.NotifyAll()
}

// --- push ---

// TryPushBack attempts a nonblocking push; it fails (returns false) if the
// deque is full or closed.
func (d *Deque[T]) TryPushBack(v T) bool { return d.tryPush(v, false, false) }

// TryPushFront is the front-side counterpart of TryPushBack.
func (d *Deque[T]) TryPushFront(v T) bool { return d.tryPush(v, true, false) }

// ForcePushBack bypasses the capacity bound; it still fails if closed.
func (d *Deque[T]) ForcePushBack(v T) bool { return d.tryPush(v, false, true) }

// ForcePushFront is the front-side counterpart of ForcePushBack.
func (d *Deque[T]) ForcePushFront(v T) bool { return d.tryPush(v, true, true) }

func (d *Deque[T]) tryPush(v T, front, force bool) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	if !force && d.buf.Len() >= d.maxSize {
		d.mu.Unlock()
		return false
	}
	if force && d.buf.Len() >= d.buf.Cap() {
		d.grow()
	}
	if front {
		d.buf.pushFront(v)
	} else {
		d.buf.pushBack(v)
	}
	d.mu.Unlock()
	d.notifyPoppers(1)
	return true
}

// grow doubles the backing ring's capacity in place; used only by the
// Force* variants when bypassing maxSize would otherwise overflow the
// fixed-capacity ring. Caller holds d.mu.
func (d *Deque[T]) grow() {
	newCap := d.buf.Cap() * 2
	if newCap == 0 {
		newCap = 1
	}
	nb := newRing[T](newCap)
	for i := 0; i < d.buf.Len(); i++ {
		nb.pushBack(d.buf.s[d.buf.idx(i)])
	}
	d.buf = nb
}

// PushBack blocks until there is room, the deque closes, or ctx is done.
func (d *Deque[T]) PushBack(ctx context.Context, v T) error { return d.push(ctx, v, false, nil) }

// PushFront is the front-side counterpart of PushBack.
func (d *Deque[T]) PushFront(ctx context.Context, v T) error { return d.push(ctx, v, true, nil) }

// TryPushBackFor blocks until there is room, the deque closes, ctx is done,
// or helper's deadline elapses.
func (d *Deque[T]) TryPushBackFor(ctx context.Context, v T, helper wait.TimedWaitHelper) error {
	return d.push(ctx, v, false, &helper)
}

// TryPushFrontFor is the front-side counterpart of TryPushBackFor.
func (d *Deque[T]) TryPushFrontFor(ctx context.Context, v T, helper wait.TimedWaitHelper) error {
	return d.push(ctx, v, true, &helper)
}

func (d *Deque[T]) push(ctx context.Context, v T, front bool, helper *wait.TimedWaitHelper) error {
	h := wait.Infinite()
	if helper != nil {
		h = *helper
	}
	d.mu.Lock()
	d.pushWaiting++
	outcome, err := d.pushCond.Wait(ctx, newDeadlockSafeLocker(&d.mu), func() bool {
		return d.closed || d.buf.Len() < d.maxSize
	}, h)
	d.pushWaiting--
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	if outcome != WaitSuccess && helper != nil {
		d.mu.Unlock()
		if outcome == WaitTimeout {
			return context.DeadlineExceeded
		}
		return err
	}
	if outcome == WaitAborted {
		d.mu.Unlock()
		return err
	}
	if front {
		d.buf.pushFront(v)
	} else {
		d.buf.pushBack(v)
	}
	d.mu.Unlock()
	d.notifyPoppers(1)
	return nil
}

// deadlockSafeLocker adapts Deque's own mutex (already held by the caller
// of push/pop) to the Locker interface Cond.Wait expects, so Cond can
// Unlock/Lock it around the suspension point exactly like a user-held lock
// in spec.md §4.3.
type deadlockSafeLocker struct {
	mu stdsync.Locker
}

func (l *deadlockSafeLocker) Lock()   { l.mu.Lock() }
func (l *deadlockSafeLocker) Unlock() { l.mu.Unlock() }

func newDeadlockSafeLocker(mu stdsync.Locker) *deadlockSafeLocker {
	return &deadlockSafeLocker{mu: mu}
}

// --- pop ---

// TryPopFront attempts a nonblocking pop; ok is false if the deque is
// empty and not yet closed, or empty and closed (drained).
func (d *Deque[T]) TryPopFront() (v T, ok bool) { return d.tryPop(false) }

// TryPopBack is the back-side counterpart of TryPopFront.
func (d *Deque[T]) TryPopBack() (v T, ok bool) { return d.tryPop(true) }

func (d *Deque[T]) tryPop(back bool) (v T, ok bool) {
	d.mu.Lock()
	if d.buf.Len() == 0 {
		d.mu.Unlock()
		return v, false
	}
	if back {
		v = d.buf.popBack()
	} else {
		v = d.buf.popFront()
	}
	d.mu.Unlock()
	d.notifyPushers(1)
	return v, true
}

// PopFront blocks until an element is available, the deque closes and
// drains, or ctx is done.
func (d *Deque[T]) PopFront(ctx context.Context) (T, error) { return d.pop(ctx, false, nil) }

// PopBack is the back-side counterpart of PopFront.
func (d *Deque[T]) PopBack(ctx context.Context) (T, error) { return d.pop(ctx, true, nil) }

// TryPopFrontFor is PopFront bounded by helper's deadline.
func (d *Deque[T]) TryPopFrontFor(ctx context.Context, helper wait.TimedWaitHelper) (T, error) {
	return d.pop(ctx, false, &helper)
}

// TryPopBackFor is PopBack bounded by helper's deadline.
func (d *Deque[T]) TryPopBackFor(ctx context.Context, helper wait.TimedWaitHelper) (T, error) {
	return d.pop(ctx, true, &helper)
}

func (d *Deque[T]) pop(ctx context.Context, back bool, helper *wait.TimedWaitHelper) (v T, err error) {
	h := wait.Infinite()
	if helper != nil {
		h = *helper
	}
	d.mu.Lock()
	d.popWaiting++
	outcome, werr := d.popCond.Wait(ctx, newDeadlockSafeLocker(&d.mu), func() bool {
		return d.buf.Len() > 0 || d.closed
	}, h)
	d.popWaiting--

	if d.buf.Len() == 0 {
		closed := d.closed
		d.mu.Unlock()
		if closed {
			return v, ErrClosed
		}
		if outcome == WaitTimeout {
			return v, context.DeadlineExceeded
		}
		return v, werr
	}
	if back {
		v = d.buf.popBack()
	} else {
		v = d.buf.popFront()
	}
	d.mu.Unlock()
	d.notifyPushers(1)
	return v, nil
}

// --- range operations ---

// TryPushBackRange pushes as many of items, in order, as fit, provided at
// least sizeHint free slots are available; otherwise it pushes nothing.
// It returns the number of elements actually pushed.
func (d *Deque[T]) TryPushBackRange(items []T, sizeHint int) int {
	return d.pushRange(items, sizeHint, false)
}

// TryPushFrontRange is the front-side counterpart of TryPushBackRange; the
// slice is pushed so that items[0] ends up closest to the front.
func (d *Deque[T]) TryPushFrontRange(items []T, sizeHint int) int {
	return d.pushRange(items, sizeHint, true)
}

func (d *Deque[T]) pushRange(items []T, sizeHint int, front bool) int {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0
	}
	free := d.maxSize - d.buf.Len()
	if free < sizeHint {
		d.mu.Unlock()
		return 0
	}
	n := len(items)
	if n > free {
		n = free
	}
	if front {
		for i := n - 1; i >= 0; i-- {
			d.buf.pushFront(items[i])
		}
	} else {
		for i := 0; i < n; i++ {
			d.buf.pushBack(items[i])
		}
	}
	d.mu.Unlock()
	if n > 0 {
		d.notifyPoppers(n)
	}
	return n
}

// TryPopFrontRange pops into dst, in order, provided at least sizeHint
// elements are present; otherwise it pops nothing. Returns the number of
// elements actually popped.
func (d *Deque[T]) TryPopFrontRange(dst []T, sizeHint int) int {
	return d.popRange(dst, sizeHint, false)
}

// TryPopBackRange is the back-side counterpart of TryPopFrontRange.
func (d *Deque[T]) TryPopBackRange(dst []T, sizeHint int) int {
	return d.popRange(dst, sizeHint, true)
}

func (d *Deque[T]) popRange(dst []T, sizeHint int, back bool) int {
	d.mu.Lock()
	have := d.buf.Len()
	if have < sizeHint {
		d.mu.Unlock()
		return 0
	}
	n := len(dst)
	if n > have {
		n = have
	}
	if back {
		for i := 0; i < n; i++ {
			dst[i] = d.buf.popBack()
		}
	} else {
		for i := 0; i < n; i++ {
			dst[i] = d.buf.popFront()
		}
	}
	d.mu.Unlock()
	if n > 0 {
		d.notifyPushers(n)
	}
	return n
}

// --- close/reopen ---

// Close marks the deque closed: all outstanding waiters wake with
// ErrClosed-equivalent status, subsequent pushes fail, and pops continue to
// succeed until drained, thereafter failing with ErrClosed.
func (d *Deque[T]) Close() {
	d.mu.Lock()
	already := d.closed
	d.closed = true
	d.mu.Unlock()
	if !already {
		d.notifyAllClosed()
	}
}

// Reopen clears the closed flag. It is only valid to call while closed.
func (d *Deque[T]) Reopen() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		panic("coro/sync: deque: Reopen called while not closed")
	}
	d.closed = false
}
