package sync

import (
	"context"
	stdsync "sync"
)

// Mutex is an awaitable mutex with ownership-transfer semantics (spec.md
// §4.4): Lock suspends the caller until it becomes the holder; Unlock must
// be called by the holder. Waiters are served strictly FIFO.
type Mutex struct {
	mu      stdsync.Mutex
	locked  bool
	waiters []chan struct{}
}

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{}
}

// Lock blocks until the mutex is acquired or ctx is done. On success the
// caller owns the mutex and must call Unlock exactly once.
func (m *Mutex) Lock(ctx context.Context) error {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	m.waiters = append(m.waiters, ch)
	m.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		for i, w := range m.waiters {
			if w == ch {
				m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
				m.mu.Unlock()
				return ctx.Err()
			}
		}
		m.mu.Unlock()
		// We were already handed ownership racing with ctx.Done(); honor
		// the handoff rather than leaking it.
		select {
		case <-ch:
			return nil
		default:
			return ctx.Err()
		}
	}
}

// TryLock attempts to acquire the mutex without suspending, returning
// false if it is currently held.
func (m *Mutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return false
	}
	m.locked = true
	return true
}

// Unlock releases the mutex, handing ownership directly to the
// longest-waiting blocked caller if any (FIFO fairness), or marking it free.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	if len(m.waiters) == 0 {
		m.locked = false
		m.mu.Unlock()
		return
	}
	next := m.waiters[0]
	m.waiters = m.waiters[1:]
	m.mu.Unlock()
	close(next)
}
