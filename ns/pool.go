package ns

import (
	"errors"
	"sort"
	stdsync "sync"
	"time"
)

var (
	// ErrNoAvailableAddress is returned when the fraction of selectable
	// weight drops below Config.MinAvailablePercent, or when the policy has
	// no selectable address left (every address disabled).
	ErrNoAvailableAddress = errors.New("ns: no available address")
	// ErrEmptyPool is returned by SelectAddress against a pool with zero
	// addresses.
	ErrEmptyPool = errors.New("ns: pool is empty")
)

// Config holds the failure-accounting and availability-gating parameters
// from spec.md §4.10 (and spec.md §6's option-parser surface).
type Config struct {
	EnableAutoBreakRecover bool
	FastRecover            bool
	TryAnotherAddr         bool
	MinAvailablePercent    int // 0..100
	MaxFailMarks           int
	MaxFailMs              int64 // milliseconds
	SuccessDecMarks        int
	FailIncMarks           int
	BreakTimeoutMs         int64 // milliseconds
}

// DefaultConfig returns conservative, always-available-by-default
// parameters (auto break/recover off, as spec.md's option parser does).
func DefaultConfig() Config {
	return Config{
		MinAvailablePercent: 0,
		MaxFailMarks:        3,
		MaxFailMs:           60_000,
		SuccessDecMarks:     1,
		FailIncMarks:        1,
		BreakTimeoutMs:      1_000,
	}
}

// Policy abstracts weighted address selection. Outcomes are not reported to
// the Policy: each selection is reported exactly once to the Pool (Success
// or Failed), and only Finisher policies receive Pool.Finish.
type Policy interface {
	add(addr *AddressInfo)
	remove(addr *AddressInfo)
	// selectLocked picks an address. exclude, if non-nil, is the history's
	// last selection, excluded from the distribution when try_another_addr
	// applies.
	selectLocked(exclude *AddressInfo) (*AddressInfo, error)
}

// Finisher is implemented by policies that track per-request state
// (weighted least-conn); others have no finish-hook, per spec.md §9's
// resolution of the addr_finish/no_need_finish ambiguity.
type Finisher interface {
	finish(addr *AddressInfo)
}

// History tracks the previously selected address, for try_another_addr
// bias on retry.
type History struct {
	Last *AddressInfo
}

// Pool is a set of AddressInfo governed by a single selection Policy, with
// failure accounting and timed recovery.
type Pool struct {
	mu       stdsync.Mutex // address-set mutex: lifecycle state, recovery list, weight tallies
	policyMu stdsync.Mutex // policy mutex: selection-structure bookkeeping

	cfg    Config
	policy Policy

	addrs           map[*AddressInfo]struct{}
	recoverList     []*AddressInfo // kept sorted by recoverAtTime ascending
	totalWeight     uint64
	availableWeight uint64
}

// NewPool constructs a pool using the given policy and configuration.
func NewPool(policy Policy, cfg Config) *Pool {
	return &Pool{
		cfg:    cfg,
		policy: policy,
		addrs:  make(map[*AddressInfo]struct{}),
	}
}

// AddAddress registers a new selectable endpoint.
func (p *Pool) AddAddress(host string, port int, weight uint32) *AddressInfo {
	addr := &AddressInfo{Host: host, Port: port, Weight: weight, state: Good}

	p.mu.Lock()
	p.addrs[addr] = struct{}{}
	p.totalWeight += uint64(weight)
	p.availableWeight += uint64(weight)
	p.mu.Unlock()

	p.policyMu.Lock()
	p.policy.add(addr)
	p.policyMu.Unlock()

	return addr
}

// RemoveAddress marks addr REMOVED and evicts it from both the lifecycle
// set and the policy's selection structure. It remains valid to read (and
// to finish any in-flight selection against) until garbage collected.
func (p *Pool) RemoveAddress(addr *AddressInfo) {
	p.mu.Lock()
	if _, ok := p.addrs[addr]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.addrs, addr)
	if addr.Selectable() {
		p.availableWeight -= uint64(addr.Weight)
	}
	p.totalWeight -= uint64(addr.Weight)
	addr.state = Removed
	p.removeFromRecoverListLocked(addr)
	p.mu.Unlock()

	p.policyMu.Lock()
	p.policy.remove(addr)
	p.policyMu.Unlock()
}

// Len returns the number of addresses currently in the pool (any state).
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.addrs)
}

// SelectAddress picks an address per the active policy, after running any
// due recovery and checking the availability gate (spec.md §4.10).
func (p *Pool) SelectAddress(h *History) (*AddressInfo, error) {
	now := time.Now()

	p.mu.Lock()
	if len(p.addrs) == 0 {
		p.mu.Unlock()
		return nil, ErrEmptyPool
	}
	p.runRecoveryLocked(now)
	if p.cfg.MinAvailablePercent > 0 && p.totalWeight > 0 {
		pct := p.availableWeight * 100 / p.totalWeight
		if pct < uint64(p.cfg.MinAvailablePercent) {
			p.mu.Unlock()
			return nil, ErrNoAvailableAddress
		}
	}
	p.mu.Unlock()

	var exclude *AddressInfo
	if p.cfg.TryAnotherAddr && h != nil {
		exclude = h.Last
	}

	p.policyMu.Lock()
	addr, err := p.policy.selectLocked(exclude)
	p.policyMu.Unlock()
	if err != nil {
		return nil, err
	}

	addr.refCount.Add(1)
	if h != nil {
		h.Last = addr
	}
	return addr, nil
}

// Success reports a successful use of addr, per spec.md §4.10's failure
// accounting, and releases the reference taken by SelectAddress.
func (p *Pool) Success(addr *AddressInfo) {
	if p.cfg.EnableAutoBreakRecover {
		p.mu.Lock()
		p.onSuccessLocked(addr, time.Now())
		p.mu.Unlock()
	}
	addr.refCount.Add(-1)
}

// Failed reports a failed use of addr, per spec.md §4.10's failure
// accounting, possibly disabling the address and scheduling recovery.
func (p *Pool) Failed(addr *AddressInfo) {
	if p.cfg.EnableAutoBreakRecover {
		p.mu.Lock()
		p.onFailureLocked(addr, time.Now())
		p.mu.Unlock()
	}
	addr.refCount.Add(-1)
}

// Finish reports the end of a unit of work against addr, for policies that
// track per-request load (least-conn). It is a no-op for policies that do
// not implement Finisher.
func (p *Pool) Finish(addr *AddressInfo) {
	if f, ok := p.policy.(Finisher); ok {
		p.policyMu.Lock()
		f.finish(addr)
		p.policyMu.Unlock()
	}
}

func (p *Pool) onSuccessLocked(addr *AddressInfo, now time.Time) {
	wasFailing := addr.state == Failing
	addr.failMarks -= p.cfg.SuccessDecMarks
	if addr.failMarks < 0 {
		addr.failMarks = 0
	}
	if addr.failMarks == 0 && wasFailing {
		addr.state = Good
		addr.firstFailTime = time.Time{}
	} else {
		addr.firstFailTime = now
	}
}

func (p *Pool) onFailureLocked(addr *AddressInfo, now time.Time) {
	if addr.state == Good {
		addr.firstFailTime = now
		addr.state = Failing
	}
	addr.failMarks += p.cfg.FailIncMarks
	if addr.failMarks > p.cfg.MaxFailMarks {
		addr.failMarks = p.cfg.MaxFailMarks
	}

	overThreshold := addr.failMarks >= p.cfg.MaxFailMarks
	overDuration := !addr.firstFailTime.IsZero() &&
		p.cfg.MaxFailMs > 0 &&
		now.Sub(addr.firstFailTime) > time.Duration(p.cfg.MaxFailMs)*time.Millisecond

	if !addr.Selectable() || !(overThreshold || overDuration) {
		return
	}

	p.availableWeight -= uint64(addr.Weight)
	addr.state = Disabled
	addr.recoverAtTime = now.Add(time.Duration(p.cfg.BreakTimeoutMs) * time.Millisecond)
	p.insertRecoverListLocked(addr)

	p.policyMu.Lock()
	p.policy.remove(addr)
	p.policyMu.Unlock()
}

func (p *Pool) insertRecoverListLocked(addr *AddressInfo) {
	i := sort.Search(len(p.recoverList), func(i int) bool {
		return p.recoverList[i].recoverAtTime.After(addr.recoverAtTime)
	})
	p.recoverList = append(p.recoverList, nil)
	copy(p.recoverList[i+1:], p.recoverList[i:])
	p.recoverList[i] = addr
}

func (p *Pool) removeFromRecoverListLocked(addr *AddressInfo) {
	for i, a := range p.recoverList {
		if a == addr {
			p.recoverList = append(p.recoverList[:i], p.recoverList[i+1:]...)
			return
		}
	}
}

// runRecoveryLocked recovers all addresses whose recover_at_time has
// passed. If fast_recover is set, every address in the pool is currently
// disabled, and the recover list's earliest entry is already due, the
// whole list is treated as due and recovered together; entries that are
// not yet due are never recovered early, fast_recover or not (spec.md
// §4.10, mirroring try_recover's recover_before_ms collapse).
func (p *Pool) runRecoveryLocked(now time.Time) {
	if len(p.recoverList) == 0 {
		return
	}

	allDue := p.cfg.FastRecover && p.availableWeight == 0 && !p.recoverList[0].recoverAtTime.After(now)

	i := 0
	for i < len(p.recoverList) && (allDue || !p.recoverList[i].recoverAtTime.After(now)) {
		i++
	}
	if i == 0 {
		return
	}
	due := p.recoverList[:i]
	p.recoverList = p.recoverList[i:]
	for _, addr := range due {
		p.recoverLocked(addr)
	}
}

func (p *Pool) recoverLocked(addr *AddressInfo) {
	if addr.state != Disabled {
		return
	}
	addr.state = Good
	addr.failMarks = 0
	addr.firstFailTime = time.Time{}
	addr.recoverAtTime = time.Time{}
	p.availableWeight += uint64(addr.Weight)

	p.policyMu.Lock()
	p.policy.add(addr)
	p.policyMu.Unlock()
}
