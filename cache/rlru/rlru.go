// Package rlru implements the random-LRU cache described in spec.md §4.9:
// a concurrent cache with single-flight fill semantics (WAITING/SUCCESS/
// FAILED per-entry state) and sampled-eviction in place of a global LRU
// list, built on [github.com/joeycumines/go-coro/container/htable] for
// storage and [github.com/joeycumines/go-coro/coro/wait] for per-entry
// wait/notify.
package rlru

import (
	"context"
	"math/rand/v2"
	stdsync "sync"

	"github.com/joeycumines/go-coro/container/htable"
	"github.com/joeycumines/go-coro/coro/wait"
)

// State is an rlru entry's lifecycle state.
type State int

const (
	Waiting State = iota
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "WAITING"
	case Success:
		return "SUCCESS"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	hasValue   bool
	state      State
	lastAccess uint64
	removed    bool
}

// Cache is a single-flight, sampled-eviction cache keyed by K, holding
// values of type V.
type Cache[K comparable, V any] struct {
	mu      stdsync.RWMutex // guards the table (read-heavy lookups)
	dataMtx stdsync.Mutex   // guards entry-state transitions and last-access updates
	table   *htable.Table[K, *entry[K, V]]
	cap     int
	maxScan int
	counter uint64 // monotonic last-access counter, shared across the cache
}

// New returns a cache bounded to cap entries, sampling up to maxScan
// candidates per eviction.
func New[K comparable, V any](hashFn func(K) uint64, cap, maxScan int) *Cache[K, V] {
	if cap < 1 {
		panic("rlru: cap must be positive")
	}
	if maxScan < 1 {
		maxScan = 1
	}
	return &Cache[K, V]{
		table:   htable.New[K, *entry[K, V]](hashFn, cap),
		cap:     cap,
		maxScan: maxScan,
	}
}

// Handle is a strong reference to a cached entry.
type Handle[K comparable, V any] struct {
	c *Cache[K, V]
	e *entry[K, V]
}

// Valid reports whether the handle refers to a real entry (the zero Handle
// is invalid, representing a cache miss).
func (h Handle[K, V]) Valid() bool { return h.e != nil }

// State returns the entry's current lifecycle state.
func (h Handle[K, V]) State() State {
	h.c.dataMtx.Lock()
	defer h.c.dataMtx.Unlock()
	return h.e.state
}

// Value returns the stored value and whether one has been set (true only
// once the entry reaches SUCCESS, or after Put).
func (h Handle[K, V]) Value() (V, bool) {
	h.c.dataMtx.Lock()
	defer h.c.dataMtx.Unlock()
	return h.e.value, h.e.hasValue
}

// EmplaceValue transitions a WAITING entry to SUCCESS with the given
// value. It does not itself notify waiters; call Notify after.
func (h Handle[K, V]) EmplaceValue(v V) {
	h.c.dataMtx.Lock()
	h.e.value = v
	h.e.hasValue = true
	h.e.state = Success
	h.c.dataMtx.Unlock()
}

// SetFailed transitions a WAITING entry to FAILED. It does not itself
// notify waiters; call Notify after.
func (h Handle[K, V]) SetFailed() {
	h.c.dataMtx.Lock()
	h.e.state = Failed
	h.c.dataMtx.Unlock()
}

// Notify wakes every coroutine blocked in Wait/WaitFor on this entry. The
// caller that won single-flight ownership via GetOrCreate is responsible
// for calling EmplaceValue or SetFailed and then Notify.
func (h Handle[K, V]) Notify() {
	wait.CancelAllByAddr(h.e)
}

// Wait suspends until the entry leaves WAITING.
func (h Handle[K, V]) Wait(ctx context.Context) error {
	return h.WaitFor(ctx, wait.Infinite())
}

// WaitFor is Wait bounded by helper's deadline.
func (h Handle[K, V]) WaitFor(ctx context.Context, helper wait.TimedWaitHelper) error {
	for {
		h.c.dataMtx.Lock()
		s := h.e.state
		h.c.dataMtx.Unlock()
		if s != Waiting {
			return nil
		}
		if d, ok := helper.Remaining(); ok && d <= 0 {
			return context.DeadlineExceeded
		}
		code, err := wait.Sleep(ctx, h.e, helper, false)
		switch code {
		case wait.Success:
			return context.DeadlineExceeded
		case wait.Canceled:
			continue
		case wait.Aborted:
			return err
		}
	}
}

func (c *Cache[K, V]) touch(e *entry[K, V]) {
	c.dataMtx.Lock()
	c.counter++
	e.lastAccess = c.counter
	c.dataMtx.Unlock()
}

// Get performs a shared-lock lookup, updating the entry's last-access
// counter on hit. It returns an empty (invalid) handle on miss.
func (c *Cache[K, V]) Get(key K) Handle[K, V] {
	c.mu.RLock()
	e, ok := c.table.Find(key)
	c.mu.RUnlock()
	if !ok {
		return Handle[K, V]{}
	}
	c.touch(e)
	return Handle[K, V]{c: c, e: e}
}

// GetOrCreate upgrades to an exclusive lock; on miss, evicting one entry
// first if at capacity, it installs a new WAITING entry and returns
// (handle, true) — the caller then owns the obligation to EmplaceValue,
// SetFailed, and Notify. On hit it returns (handle, false).
func (c *Cache[K, V]) GetOrCreate(key K) (Handle[K, V], bool) {
	c.mu.Lock()
	if e, ok := c.table.Find(key); ok {
		c.mu.Unlock()
		c.touch(e)
		return Handle[K, V]{c: c, e: e}, false
	}
	if c.table.Size() >= c.cap {
		c.evictLocked()
	}
	e := &entry[K, V]{key: key, state: Waiting}
	c.table.Insert(key, e)
	c.mu.Unlock()
	c.touch(e)
	return Handle[K, V]{c: c, e: e}, true
}

// Put unconditionally installs a SUCCESS entry for key, replacing any
// existing entry (including one in WAITING — no wakeup is performed; the
// original waiter owner must notify its own handle, since Put does not
// know who that is).
func (c *Cache[K, V]) Put(key K, value V) Handle[K, V] {
	c.mu.Lock()
	if idx, ok := c.table.FindIndex(key); ok {
		c.table.Erase(idx)
	}
	if c.table.Size() >= c.cap {
		c.evictLocked()
	}
	e := &entry[K, V]{key: key, value: value, hasValue: true, state: Success}
	c.table.Insert(key, e)
	c.mu.Unlock()
	c.touch(e)
	return Handle[K, V]{c: c, e: e}
}

// Remove deletes key if present, reporting whether it was.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.EraseKey(key)
}

// Len returns the number of entries currently cached.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table.Size()
}

// evictLocked samples up to maxScan random live entries and evicts the one
// with the smallest last-access counter (spec.md §4.9). Caller holds c.mu
// for writing.
func (c *Cache[K, V]) evictLocked() {
	live := c.table.Live()
	if live == 0 {
		return
	}
	scan := c.maxScan
	if scan > live {
		scan = live
	}
	seen := make(map[int]struct{}, scan)
	bestPos := -1
	var bestAccess uint64
	first := true
	for len(seen) < scan {
		p := rand.IntN(live)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		_, e := c.table.At(p)
		c.dataMtx.Lock()
		la := e.lastAccess
		c.dataMtx.Unlock()
		if first || la < bestAccess {
			bestAccess = la
			bestPos = p
			first = false
		}
	}
	idx := c.table.IndexAt(bestPos)
	c.table.Erase(idx)
}
