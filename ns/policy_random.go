package ns

import (
	"math/rand/v2"

	"github.com/joeycumines/go-coro/container/bit"
)

// randomPolicy is the weighted-random selection policy (spec.md §4.10):
// positions are tracked in a Fenwick tree so a single uniform draw over
// total weight picks an address in O(log n).
type randomPolicy struct {
	tree  *bit.Tree
	addrs []*AddressInfo // addrs[i] is the address occupying tree position i
}

// NewWeightedRandom returns a Policy implementing weighted-random
// selection.
func NewWeightedRandom() Policy {
	return &randomPolicy{tree: bit.New()}
}

func (p *randomPolicy) add(addr *AddressInfo) {
	addr.bitPos = len(p.addrs)
	p.addrs = append(p.addrs, addr)
	p.tree.AddElement(int64(addr.Weight))
}

func (p *randomPolicy) remove(addr *AddressInfo) {
	pos := addr.bitPos
	if pos < 0 || pos >= len(p.addrs) || p.addrs[pos] != addr {
		return
	}
	last := len(p.addrs) - 1
	if pos != last {
		moved := p.addrs[last]
		p.tree.Increase(pos, int64(moved.Weight)-int64(addr.Weight))
		p.addrs[pos] = moved
		moved.bitPos = pos
	}
	p.tree.RemoveLastElement()
	p.addrs = p.addrs[:last]
	addr.bitPos = -1
}

// selectLocked draws position rand64() mod available_weight via the BIT's
// FindPos descent. When exclude is set and still present and it is not the
// pool's only address, its weight is excluded from the distribution for
// the duration of this call (spec.md §4.10: "If try_another_addr ... and
// not the only one, exclude it from the distribution").
func (p *randomPolicy) selectLocked(exclude *AddressInfo) (*AddressInfo, error) {
	if len(p.addrs) == 0 {
		return nil, ErrNoAvailableAddress
	}

	excluded := exclude != nil && exclude.bitPos >= 0 && len(p.addrs) > 1
	if excluded {
		p.tree.Decrease(exclude.bitPos, int64(exclude.Weight))
	}

	total := p.tree.Total()
	var addr *AddressInfo
	if total > 0 {
		x := rand.Int64N(total)
		pos := p.tree.FindPos(x)
		addr = p.addrs[pos]
	}

	if excluded {
		p.tree.Increase(exclude.bitPos, int64(exclude.Weight))
	}

	if addr == nil {
		// All weight was on the excluded address: no alternative exists.
		addr = exclude
	}
	return addr, nil
}
