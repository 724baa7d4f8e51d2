package htable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strHash(s string) uint64 {
	var h uint64 = 1469598103934665603
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func TestTableInsertFind(t *testing.T) {
	tbl := New[string, int](strHash, 8)
	tbl.Insert("a", 1)
	tbl.Insert("b", 2)
	v, ok := tbl.Find("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = tbl.Find("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = tbl.Find("c")
	assert.False(t, ok)
}

func TestTableFindMostRecentlyInserted(t *testing.T) {
	tbl := New[string, int](strHash, 8)
	tbl.Insert("k", 1)
	tbl.Insert("k", 2) // duplicate key permitted
	v, ok := tbl.Find("k")
	require.True(t, ok)
	assert.Equal(t, 2, v, "most recently inserted equal key must be found first")
}

func TestTableEraseAndSize(t *testing.T) {
	tbl := New[string, int](strHash, 8)
	idx := tbl.Insert("a", 1)
	tbl.Insert("b", 2)
	assert.Equal(t, 2, tbl.Size())
	tbl.Erase(idx)
	assert.Equal(t, 1, tbl.Size())
	_, ok := tbl.Find("a")
	assert.False(t, ok)
}

func TestTableIterationNoDuplicatesCoversAll(t *testing.T) {
	tbl := New[int, int](func(k int) uint64 { return uint64(k) }, 4)
	want := map[int]int{}
	for i := 0; i < 200; i++ {
		tbl.Insert(i, i*i)
		want[i] = i * i
	}
	got := map[int]int{}
	tbl.Each(func(k, v int) {
		_, dup := got[k]
		assert.False(t, dup, "duplicate key in iteration")
		got[k] = v
	})
	assert.Equal(t, tbl.Size(), len(got))
	assert.Equal(t, want, got)
}

func TestTableClear(t *testing.T) {
	tbl := New[int, int](func(k int) uint64 { return uint64(k) }, 4)
	for i := 0; i < 10; i++ {
		tbl.Insert(i, i)
	}
	tbl.Clear()
	assert.Equal(t, 0, tbl.Size())
	_, ok := tbl.Find(0)
	assert.False(t, ok)
}

func TestTableRehashPreservesEntries(t *testing.T) {
	tbl := New[int, int](func(k int) uint64 { return uint64(k) }, 4)
	n := 5000
	for i := 0; i < n; i++ {
		tbl.Insert(i, i*2)
	}
	assert.Equal(t, n, tbl.Size())
	for i := 0; i < n; i++ {
		v, ok := tbl.Find(i)
		require.True(t, ok)
		assert.Equal(t, i*2, v)
	}
}

func TestTableIndexedAccessForSampling(t *testing.T) {
	tbl := New[int, int](func(k int) uint64 { return uint64(k) }, 4)
	for i := 0; i < 16; i++ {
		tbl.Insert(i, i)
	}
	seen := map[int]bool{}
	for i := 0; i < tbl.Live(); i++ {
		k, v := tbl.At(i)
		assert.Equal(t, k, v)
		seen[k] = true
	}
	assert.Len(t, seen, 16)
}
