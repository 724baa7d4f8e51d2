package ns

import (
	"math/rand/v2"
	"sort"
)

// Virtual-key constants from spec.md §4.10: weight must not exceed
// seatings, and the virtual key wraps at virtualWrap to tolerate overflow
// from repeated selection.
const (
	seatings    = 1 << 20
	virtualWrap = 1 << 30
)

// roundRobinPolicy is the weighted round-robin policy: each address holds
// a virtual key tieOffset + seatings*step/weight in a set kept sorted by
// key; selection takes the lowest key at or after the rotating cursor,
// wrapping to the start when none remain.
type roundRobinPolicy struct {
	addrs     []*AddressInfo
	curOffset int64
}

// NewWeightedRoundRobin returns a Policy implementing weighted
// round-robin selection.
func NewWeightedRoundRobin() Policy {
	return &roundRobinPolicy{}
}

func (p *roundRobinPolicy) add(addr *AddressInfo) {
	addr.step = 0
	var tie int64
	if addr.Weight > 0 {
		if mod := int64(seatings) / int64(addr.Weight); mod > 0 {
			tie = rand.Int64N(mod)
		}
	}
	addr.tieOffset = tie
	addr.virtualKey = tie
	p.addrs = append(p.addrs, addr)
	p.sort()
}

func (p *roundRobinPolicy) remove(addr *AddressInfo) {
	for i, a := range p.addrs {
		if a == addr {
			p.addrs = append(p.addrs[:i], p.addrs[i+1:]...)
			return
		}
	}
}

func (p *roundRobinPolicy) sort() {
	sort.Slice(p.addrs, func(i, j int) bool { return p.addrs[i].virtualKey < p.addrs[j].virtualKey })
}

func (p *roundRobinPolicy) selectLocked(exclude *AddressInfo) (*AddressInfo, error) {
	n := len(p.addrs)
	if n == 0 {
		return nil, ErrNoAvailableAddress
	}

	idx := sort.Search(n, func(i int) bool { return p.addrs[i].virtualKey >= p.curOffset })
	if idx == n {
		idx = 0
	}
	if exclude != nil && n > 1 && p.addrs[idx] == exclude {
		idx = (idx + 1) % n
	}

	addr := p.addrs[idx]
	p.curOffset = addr.virtualKey
	addr.step++
	if addr.Weight > 0 {
		addr.virtualKey = addr.tieOffset + int64(seatings)*addr.step/int64(addr.Weight)
	}
	if addr.virtualKey >= virtualWrap {
		addr.step = 0
		addr.virtualKey = addr.tieOffset
	}
	p.sort()
	return addr, nil
}
