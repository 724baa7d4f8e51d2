package rlru

import (
	"context"
	"strconv"
	stdsync "sync"
	"testing"
	"time"

	"github.com/joeycumines/go-coro/coro/wait"
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

func TestCacheGetMiss(t *testing.T) {
	c := New[string, int](strHash, 4, 2)
	h := c.Get("nope")
	assert.False(t, h.Valid())
}

func TestCachePutThenGet(t *testing.T) {
	c := New[string, int](strHash, 4, 2)
	c.Put("a", 1)
	h := c.Get("a")
	require.True(t, h.Valid())
	v, ok := h.Value()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, Success, h.State())
}

// TestCacheSingleFlight mirrors spec.md §8 scenario 3: two callers race
// GetOrCreate on the same key; exactly one gets (handle, created=true), and
// the other's Wait observes the emplaced value after the winner calls
// EmplaceValue + Notify.
func TestCacheSingleFlight(t *testing.T) {
	c := New[string, int](strHash, 4, 2)

	var wg stdsync.WaitGroup
	created := make([]bool, 2)
	values := make([]int, 2)

	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			h, isCreator := c.GetOrCreate("k")
			created[i] = isCreator
			if isCreator {
				time.Sleep(10 * time.Millisecond)
				h.EmplaceValue(42)
				h.Notify()
				values[i] = 42
				return
			}
			err := h.Wait(context.Background())
			require.NoError(t, err)
			v, ok := h.Value()
			require.True(t, ok)
			values[i] = v
		}(i)
	}
	close(start)
	wg.Wait()

	assert.NotEqual(t, created[0], created[1], "exactly one caller must win single-flight creation")
	assert.Equal(t, 42, values[0])
	assert.Equal(t, 42, values[1])
}

func TestCacheGetOrCreateHitDoesNotRecreate(t *testing.T) {
	c := New[string, int](strHash, 4, 2)
	c.Put("a", 1)
	h, created := c.GetOrCreate("a")
	assert.False(t, created)
	v, ok := h.Value()
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestCacheWaitFailedPath(t *testing.T) {
	c := New[string, int](strHash, 4, 2)
	h, created := c.GetOrCreate("a")
	require.True(t, created)

	done := make(chan error, 1)
	go func() {
		done <- h.Wait(context.Background())
	}()

	time.Sleep(5 * time.Millisecond)
	h.SetFailed()
	h.Notify()

	require.NoError(t, <-done)
	assert.Equal(t, Failed, h.State())
}

func TestCacheWaitForTimesOut(t *testing.T) {
	c := New[string, int](strHash, 4, 2)
	h, created := c.GetOrCreate("a")
	require.True(t, created)

	err := h.WaitFor(context.Background(), wait.WithTimeout(20*time.Millisecond))
	assert.Error(t, err)
	assert.Equal(t, Waiting, h.State())
}

func TestCacheEvictsUnderCapacity(t *testing.T) {
	c := New[string, int](strHash, 2, 2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	assert.LessOrEqual(t, c.Len(), 2)
}

func TestCacheRemove(t *testing.T) {
	c := New[string, int](strHash, 4, 2)
	c.Put("a", 1)
	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	h := c.Get("a")
	assert.False(t, h.Valid())
}

func TestCacheManyKeysStayWithinCapacity(t *testing.T) {
	c := New[string, int](strHash, 8, 3)
	for i := 0; i < 100; i++ {
		c.Put("k"+strconv.Itoa(i), i)
	}
	assert.LessOrEqual(t, c.Len(), 8)
}
