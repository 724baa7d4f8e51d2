// Package bit implements a binary indexed (Fenwick) tree supporting
// dynamic add/remove of elements, point updates, and prefix-sum queries in
// O(log n), used by package ns for weighted random address selection
// (spec.md §4.8).
package bit

// Tree is a Fenwick tree over a dynamically resizable sequence of
// non-negative weights, 0-indexed externally (1-indexed internally, as is
// conventional for Fenwick trees).
type Tree struct {
	tree []int64 // 1-indexed BIT array, len(tree) == cap+1
	n    int     // logical element count
}

// New returns an empty tree.
func New() *Tree {
	t := &Tree{}
	t.tree = make([]int64, 5) // capacity 4, 1-indexed
	return t
}

func (t *Tree) capacity() int { return len(t.tree) - 1 }

// Len returns the number of elements currently tracked.
func (t *Tree) Len() int { return t.n }

// AddElement appends a new element with weight w, growing capacity
// (doubling) if needed.
func (t *Tree) AddElement(w int64) {
	if t.n == t.capacity() {
		t.grow(t.capacity() * 2)
	}
	t.n++
	t.Increase(t.n-1, w)
}

// RemoveLastElement deletes the most recently added element (position
// Len()-1), shrinking capacity (halving) once occupancy drops to <= 25%,
// bounded below at capacity 4.
func (t *Tree) RemoveLastElement() {
	if t.n == 0 {
		panic("bit: RemoveLastElement: tree is empty")
	}
	last := t.n - 1
	w := t.weightAt(last)
	t.Decrease(last, w)
	t.n--
	if t.capacity() > 4 && t.n <= t.capacity()/4 {
		t.grow(t.capacity() / 2)
	}
}

func (t *Tree) weightAt(pos int) int64 {
	return t.prefixSumInternal(pos+1) - t.prefixSumInternal(pos)
}

// grow rebuilds the tree at newCap capacity (newCap >= t.n), preserving all
// current weights.
func (t *Tree) grow(newCap int) {
	if newCap < 4 {
		newCap = 4
	}
	weights := make([]int64, t.n)
	for i := 0; i < t.n; i++ {
		weights[i] = t.weightAt(i)
	}
	t.tree = make([]int64, newCap+1)
	for i, w := range weights {
		t.increaseInternal(i, w)
	}
}

func (t *Tree) increaseInternal(pos int, delta int64) {
	for i := pos + 1; i < len(t.tree); i += i & (-i) {
		t.tree[i] += delta
	}
}

// Increase adds delta to the weight at position pos (0-indexed).
func (t *Tree) Increase(pos int, delta int64) {
	t.checkPos(pos)
	t.increaseInternal(pos, delta)
}

// Decrease subtracts delta from the weight at position pos (0-indexed).
func (t *Tree) Decrease(pos int, delta int64) {
	t.Increase(pos, -delta)
}

func (t *Tree) checkPos(pos int) {
	if pos < 0 || pos >= t.n {
		panic("bit: position out of range")
	}
}

func (t *Tree) prefixSumInternal(pos int) int64 {
	var sum int64
	for i := pos; i > 0; i -= i & (-i) {
		sum += t.tree[i]
	}
	return sum
}

// PrefixSum returns the sum of weights in [0, pos] (inclusive, 0-indexed).
// PrefixSum(-1) (i.e. before any element) is 0.
func (t *Tree) PrefixSum(pos int) int64 {
	if pos < 0 {
		return 0
	}
	return t.prefixSumInternal(pos + 1)
}

// Total returns the sum of all weights.
func (t *Tree) Total() int64 {
	return t.prefixSumInternal(t.n)
}

// FindPos returns the smallest index p such that PrefixSum(p) > x,
// i.e. PrefixSum(p-1) <= x < PrefixSum(p), using the
// standard O(log n) Fenwick descent. Requires 0 <= x < Total(); panics
// otherwise.
func (t *Tree) FindPos(x int64) int {
	if x < 0 || x >= t.Total() {
		panic("bit: FindPos: x out of range")
	}
	pos := 0
	remaining := x + 1 // looking for smallest prefix sum >= remaining
	logSize := 1
	for (1 << logSize) <= len(t.tree) {
		logSize++
	}
	for shift := logSize; shift >= 0; shift-- {
		next := pos + (1 << shift)
		if next < len(t.tree) && t.tree[next] < remaining {
			pos = next
			remaining -= t.tree[next]
		}
	}
	return pos // 0-indexed position: pos was the largest index with prefix < remaining, so element at `pos` (0-indexed) is the answer
}
