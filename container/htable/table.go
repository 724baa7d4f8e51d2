package htable

const defaultMaxLoadFactor = 1.0

const noIndex = -1

type entry[K comparable, V any] struct {
	hash      uint64
	key       K
	value     V
	chainNext int
	chainPrev int
	livePos   int
	inUse     bool
}

// Table is an intrusive-style chained hashtable keyed by K, with O(1)
// indexed access to its live entries for sampled eviction (spec.md §4.7).
type Table[K comparable, V any] struct {
	buckets       []int
	entries       []entry[K, V]
	free          []int
	live          []int
	size          int
	maxLoadFactor float64
	nextResize    int
	hashFn        func(K) uint64
}

// New returns an empty table with the given hash function and initial
// capacity hint.
func New[K comparable, V any](hashFn func(K) uint64, capacityHint int) *Table[K, V] {
	t := &Table[K, V]{
		maxLoadFactor: defaultMaxLoadFactor,
		hashFn:        hashFn,
	}
	bc := nextBucketCount(capacityHint, t.maxLoadFactor)
	t.buckets = make([]int, bc)
	for i := range t.buckets {
		t.buckets[i] = noIndex
	}
	t.nextResize = int(float64(bc) * t.maxLoadFactor)
	return t
}

// Size returns the number of entries currently stored.
func (t *Table[K, V]) Size() int { return t.size }

// BucketCount returns the current number of buckets.
func (t *Table[K, V]) BucketCount() int { return len(t.buckets) }

func (t *Table[K, V]) bucketOf(hash uint64) int {
	return int(hash % uint64(len(t.buckets)))
}

// Find walks at most one bucket's chain and returns the first entry whose
// key equals k, if any.
func (t *Table[K, V]) Find(k K) (V, bool) {
	h := t.hashFn(k)
	idx := t.buckets[t.bucketOf(h)]
	for idx != noIndex {
		e := &t.entries[idx]
		if e.hash == h && e.key == k {
			return e.value, true
		}
		idx = e.chainNext
	}
	var zero V
	return zero, false
}

// FindIndex is like Find but also returns the entry's stable handle index,
// usable with Get/Set/Erase without re-hashing.
func (t *Table[K, V]) FindIndex(k K) (idx int, ok bool) {
	h := t.hashFn(k)
	i := t.buckets[t.bucketOf(h)]
	for i != noIndex {
		e := &t.entries[i]
		if e.hash == h && e.key == k {
			return i, true
		}
		i = e.chainNext
	}
	return noIndex, false
}

// Insert adds a new entry, amortized O(1). Duplicate keys are permitted;
// the caller layer decides deduplication policy (spec.md §4.7). Returns the
// new entry's stable handle index.
func (t *Table[K, V]) Insert(k K, v V) int {
	h := t.hashFn(k)
	idx := t.allocSlot()
	e := &t.entries[idx]
	e.hash, e.key, e.value, e.inUse = h, k, v, true

	b := t.bucketOf(h)
	head := t.buckets[b]
	e.chainNext = head
	e.chainPrev = noIndex
	if head != noIndex {
		t.entries[head].chainPrev = idx
	}
	t.buckets[b] = idx

	e.livePos = len(t.live)
	t.live = append(t.live, idx)
	t.size++

	if t.size > t.nextResize {
		t.rehash(nextBucketCount(t.size, t.maxLoadFactor))
	}
	return idx
}

func (t *Table[K, V]) allocSlot() int {
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		return idx
	}
	t.entries = append(t.entries, entry[K, V]{})
	return len(t.entries) - 1
}

// Erase removes the entry at idx (as returned by Insert/FindIndex), O(1).
func (t *Table[K, V]) Erase(idx int) {
	e := &t.entries[idx]
	if !e.inUse {
		return
	}
	b := t.bucketOf(e.hash)
	if e.chainPrev != noIndex {
		t.entries[e.chainPrev].chainNext = e.chainNext
	} else {
		t.buckets[b] = e.chainNext
	}
	if e.chainNext != noIndex {
		t.entries[e.chainNext].chainPrev = e.chainPrev
	}

	// Swap-remove from the dense live vector.
	last := len(t.live) - 1
	pos := e.livePos
	movedIdx := t.live[last]
	t.live[pos] = movedIdx
	t.entries[movedIdx].livePos = pos
	t.live = t.live[:last]

	*e = entry[K, V]{}
	t.free = append(t.free, idx)
	t.size--
}

// EraseKey finds and erases the first entry matching k, reporting whether
// one was found.
func (t *Table[K, V]) EraseKey(k K) bool {
	idx, ok := t.FindIndex(k)
	if !ok {
		return false
	}
	t.Erase(idx)
	return true
}

// Get returns the value stored at handle idx.
func (t *Table[K, V]) Get(idx int) (V, bool) {
	e := &t.entries[idx]
	if !e.inUse {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set overwrites the value stored at handle idx.
func (t *Table[K, V]) Set(idx int, v V) {
	t.entries[idx].value = v
}

// Live returns the number of live entries, equivalent to Size.
func (t *Table[K, V]) Live() int { return len(t.live) }

// At returns the (key, value) of the i-th live entry in O(1), for sampled
// eviction. i must be in [0, Live()).
func (t *Table[K, V]) At(i int) (K, V) {
	idx := t.live[i]
	e := &t.entries[idx]
	return e.key, e.value
}

// IndexAt returns the stable handle index of the i-th live entry.
func (t *Table[K, V]) IndexAt(i int) int { return t.live[i] }

// Clear removes all entries. After Clear, Size() == 0.
func (t *Table[K, V]) Clear() {
	for i := range t.buckets {
		t.buckets[i] = noIndex
	}
	t.entries = t.entries[:0]
	t.free = t.free[:0]
	t.live = t.live[:0]
	t.size = 0
}

// Each calls fn for every live entry. Iteration order is the live vector's
// order, which here remains stable across rehashes (a strictly stronger
// guarantee than spec.md's "stable unless rehashed", since rehashing only
// rebuilds bucket chains, never the live vector).
func (t *Table[K, V]) Each(fn func(k K, v V)) {
	for _, idx := range t.live {
		e := &t.entries[idx]
		fn(e.key, e.value)
	}
}

// rehash rebuilds the bucket array for newBucketCount buckets. No
// exceptions (panics) may escape once the new bucket vector is allocated;
// the loop below only touches already-validated entries so this holds by
// construction.
func (t *Table[K, V]) rehash(newBucketCount int) {
	nb := make([]int, newBucketCount)
	for i := range nb {
		nb[i] = noIndex
	}
	t.buckets = nb
	for _, idx := range t.live {
		e := &t.entries[idx]
		b := t.bucketOf(e.hash)
		e.chainNext = t.buckets[b]
		e.chainPrev = noIndex
		if e.chainNext != noIndex {
			t.entries[e.chainNext].chainPrev = idx
		}
		t.buckets[b] = idx
	}
	t.nextResize = int(float64(newBucketCount) * t.maxLoadFactor)
}
