package ns

import "sort"

// leastConnPolicy is the weighted least-connections policy: each address
// holds key = seatings*conn_count/weight in a set kept sorted by key;
// selection takes the smallest key, increments that address's connection
// count, and re-sorts (spec.md §4.10).
type leastConnPolicy struct {
	addrs []*AddressInfo
}

// NewWeightedLeastConn returns a Policy implementing weighted
// least-connections selection. It also implements Finisher: callers must
// invoke Pool.Finish once the unit of work against a selected address
// completes, so its connection count is decremented.
func NewWeightedLeastConn() Policy {
	return &leastConnPolicy{}
}

func (p *leastConnPolicy) add(addr *AddressInfo) {
	addr.connCount = 0
	var maxKey int64
	for _, a := range p.addrs {
		if a.virtualKey > maxKey {
			maxKey = a.virtualKey
		}
	}
	// Addresses added to an already-running pool start at the current
	// maximum key, so they are not immediately flooded with load.
	addr.virtualKey = maxKey
	p.addrs = append(p.addrs, addr)
	p.sort()
}

func (p *leastConnPolicy) remove(addr *AddressInfo) {
	for i, a := range p.addrs {
		if a == addr {
			p.addrs = append(p.addrs[:i], p.addrs[i+1:]...)
			return
		}
	}
}

func (p *leastConnPolicy) sort() {
	sort.Slice(p.addrs, func(i, j int) bool { return p.addrs[i].virtualKey < p.addrs[j].virtualKey })
}

func (p *leastConnPolicy) rekey(addr *AddressInfo) {
	if addr.Weight > 0 {
		addr.virtualKey = int64(seatings) * addr.connCount / int64(addr.Weight)
	}
}

func (p *leastConnPolicy) selectLocked(exclude *AddressInfo) (*AddressInfo, error) {
	n := len(p.addrs)
	if n == 0 {
		return nil, ErrNoAvailableAddress
	}

	idx := 0
	if exclude != nil && n > 1 && p.addrs[0] == exclude {
		idx = 1
	}

	addr := p.addrs[idx]
	addr.connCount++
	p.rekey(addr)
	p.sort()
	return addr, nil
}

// finish implements Finisher.
func (p *leastConnPolicy) finish(addr *AddressInfo) {
	if addr.connCount > 0 {
		addr.connCount--
	}
	p.rekey(addr)
	p.sort()
}
