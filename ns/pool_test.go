package ns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAddSelectRemove(t *testing.T) {
	p := NewPool(NewWeightedRandom(), DefaultConfig())
	a := p.AddAddress("10.0.0.1", 6379, 1)
	require.Equal(t, 1, p.Len())

	sel, err := p.SelectAddress(nil)
	require.NoError(t, err)
	assert.Same(t, a, sel)

	p.RemoveAddress(a)
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, Removed, a.State())

	_, err = p.SelectAddress(nil)
	assert.Equal(t, ErrEmptyPool, err)
}

// TestRoundRobinFairness mirrors spec.md §8: over k * Σweights selections
// with no failures, each address is picked exactly k*weight(a) times.
func TestRoundRobinFairness(t *testing.T) {
	p := NewPool(NewWeightedRoundRobin(), DefaultConfig())
	a1 := p.AddAddress("a1", 1, 1)
	a2 := p.AddAddress("a2", 1, 2)
	a3 := p.AddAddress("a3", 1, 3)

	counts := map[*AddressInfo]int{}
	const k = 10
	total := k * (1 + 2 + 3)
	h := &History{}
	for i := 0; i < total; i++ {
		sel, err := p.SelectAddress(h)
		require.NoError(t, err)
		counts[sel]++
	}

	assert.Equal(t, k*1, counts[a1])
	assert.Equal(t, k*2, counts[a2])
	assert.Equal(t, k*3, counts[a3])
}

// TestWeightedRandomConverges mirrors spec.md §8: empirical frequency
// converges to weight(a)/total_weight over many selections.
func TestWeightedRandomConverges(t *testing.T) {
	p := NewPool(NewWeightedRandom(), DefaultConfig())
	a1 := p.AddAddress("a1", 1, 1)
	a2 := p.AddAddress("a2", 1, 3)

	const n = 40000
	counts := map[*AddressInfo]int{}
	for i := 0; i < n; i++ {
		sel, err := p.SelectAddress(nil)
		require.NoError(t, err)
		counts[sel]++
	}

	frac1 := float64(counts[a1]) / float64(n)
	frac2 := float64(counts[a2]) / float64(n)
	assert.InDelta(t, 0.25, frac1, 0.03)
	assert.InDelta(t, 0.75, frac2, 0.03)
}

// TestBreakAndRecover mirrors spec.md §8 scenario 5: three consecutive
// failures disable the address; after break_timeout_ms, the next select
// recovers it.
func TestBreakAndRecover(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableAutoBreakRecover = true
	cfg.MaxFailMarks = 3
	cfg.FailIncMarks = 1
	cfg.BreakTimeoutMs = 50

	p := NewPool(NewWeightedRandom(), cfg)
	x := p.AddAddress("x", 1, 1)
	y := p.AddAddress("y", 1, 1)

	for i := 0; i < 3; i++ {
		p.Failed(x)
	}
	assert.Equal(t, Disabled, x.State())

	for i := 0; i < 20; i++ {
		sel, err := p.SelectAddress(nil)
		require.NoError(t, err)
		assert.Same(t, y, sel, "disabled address must not be selected")
	}

	time.Sleep(60 * time.Millisecond)

	_, err := p.SelectAddress(nil)
	require.NoError(t, err)
	assert.Equal(t, Good, x.State(), "address must recover to Good after break_timeout_ms")
}

// TestFastRecoverSkipsNotYetDueAddress mirrors nspolicy.cpp's try_recover:
// fast_recover only collapses the gate to "recover everything due so far"
// once the recover list's earliest entry is itself already due. An address
// whose recover_at_time is still in the future must not be recovered early
// just because the whole pool is disabled.
func TestFastRecoverSkipsNotYetDueAddress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableAutoBreakRecover = true
	cfg.FastRecover = true
	cfg.MaxFailMarks = 1
	cfg.FailIncMarks = 1
	cfg.BreakTimeoutMs = 100_000

	p := NewPool(NewWeightedRandom(), cfg)
	x := p.AddAddress("x", 1, 1)
	y := p.AddAddress("y", 1, 1)

	p.Failed(x)
	p.Failed(y)
	assert.Equal(t, Disabled, x.State())
	assert.Equal(t, Disabled, y.State())

	_, err := p.SelectAddress(nil)
	assert.ErrorIs(t, err, ErrNoAvailableAddress)
	assert.Equal(t, Disabled, x.State(), "fast_recover must not recover an address before its recover_at_time")
	assert.Equal(t, Disabled, y.State())
}

func TestSuccessClearsFailMarks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableAutoBreakRecover = true
	cfg.SuccessDecMarks = 1
	cfg.FailIncMarks = 1
	cfg.MaxFailMarks = 5

	p := NewPool(NewWeightedRandom(), cfg)
	a := p.AddAddress("a", 1, 1)

	p.Failed(a)
	p.Failed(a)
	assert.Equal(t, 2, a.FailMarks())
	assert.Equal(t, Failing, a.State())

	p.Success(a)
	p.Success(a)
	assert.Equal(t, 0, a.FailMarks())
	assert.Equal(t, Good, a.State())
}

func TestLeastConnPrefersFewestConnections(t *testing.T) {
	p := NewPool(NewWeightedLeastConn(), DefaultConfig())
	a := p.AddAddress("a", 1, 1)
	b := p.AddAddress("b", 1, 1)

	sel1, err := p.SelectAddress(nil)
	require.NoError(t, err)
	sel2, err := p.SelectAddress(nil)
	require.NoError(t, err)
	assert.NotSame(t, sel1, sel2, "least-conn must spread load across equal-weight addresses")

	p.Finish(sel1)
	sel3, err := p.SelectAddress(nil)
	require.NoError(t, err)
	assert.Same(t, sel1, sel3, "finished address should become least-loaded again")

	_ = a
	_ = b
}

func TestMinAvailablePercentGate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableAutoBreakRecover = true
	cfg.MinAvailablePercent = 60
	cfg.MaxFailMarks = 1
	cfg.FailIncMarks = 1
	cfg.BreakTimeoutMs = 100_000

	p := NewPool(NewWeightedRandom(), cfg)
	a := p.AddAddress("a", 1, 1)
	_ = p.AddAddress("b", 1, 1)

	p.Failed(a)
	_, err := p.SelectAddress(nil)
	assert.ErrorIs(t, err, ErrNoAvailableAddress)
}
