package ns

import (
	"sync/atomic"
	"time"
)

// State is an address's position in the GOOD -> FAILING -> DISABLED ->
// (recovery) -> GOOD lifecycle, or REMOVED once deleted from the pool.
type State int

const (
	Good State = iota
	Failing
	Disabled
	Removed
)

func (s State) String() string {
	switch s {
	case Good:
		return "GOOD"
	case Failing:
		return "FAILING"
	case Disabled:
		return "DISABLED"
	case Removed:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// AddressInfo is one backend endpoint. Lifecycle counters (state,
// fail-marks, recovery timestamps) are owned by Pool under its address-set
// mutex; selection-policy bookkeeping (virtual keys, connection counts) is
// owned by the active Policy under Pool's separate policy mutex, per
// spec.md §4.10's two-level locking.
type AddressInfo struct {
	Host   string
	Port   int
	Weight uint32

	state          State
	failMarks      int
	firstFailTime  time.Time
	recoverAtTime  time.Time
	refCount       atomic.Int32

	// policy-owned bookkeeping; only the fields the active Policy cares
	// about are meaningful, depending on which Policy the owning Pool uses.
	virtualKey int64
	tieOffset  int64
	step       int64
	connCount  int64
	bitPos     int
}

// State returns the address's current lifecycle state.
func (a *AddressInfo) State() State { return a.state }

// FailMarks returns the address's current fail-mark count.
func (a *AddressInfo) FailMarks() int { return a.failMarks }

// RefCount returns the number of in-flight selections currently holding
// this address (acquired by SelectAddress, released by Success/Failed).
func (a *AddressInfo) RefCount() int32 { return a.refCount.Load() }

// Selectable reports whether the address may currently be returned by a
// selection policy (GOOD or FAILING, but not DISABLED or REMOVED).
func (a *AddressInfo) Selectable() bool {
	return a.state == Good || a.state == Failing
}
