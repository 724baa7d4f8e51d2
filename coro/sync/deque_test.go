package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDequeOrdering is scenario 1 in spec.md §8.
func TestDequeOrdering(t *testing.T) {
	d := NewDeque[int](3)
	assert.True(t, d.TryPushBack(1))
	assert.True(t, d.TryPushBack(2))
	assert.True(t, d.TryPushBack(3))
	assert.False(t, d.TryPushBack(4))

	v, ok := d.TryPopFront()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.True(t, d.TryPushBack(4))

	for _, want := range []int{2, 3, 4} {
		v, ok := d.TryPopFront()
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
	_, ok = d.TryPopFront()
	assert.False(t, ok)
}

func TestDequeCloseDrainThenClosed(t *testing.T) {
	d := NewDeque[int](4)
	require.True(t, d.TryPushBack(1))
	require.True(t, d.TryPushBack(2))
	d.Close()

	assert.False(t, d.TryPushBack(3))

	v, ok := d.TryPopFront()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = d.TryPopFront()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, err := d.PopFront(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDequeBlockingPushPop(t *testing.T) {
	d := NewDeque[int](1)
	require.True(t, d.TryPushBack(1))

	done := make(chan struct{})
	go func() {
		require.NoError(t, d.PushBack(context.Background(), 2))
		close(done)
	}()

	v, err := d.PopFront(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	<-done

	v, err = d.PopFront(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestDequeRangePush(t *testing.T) {
	d := NewDeque[int](5)
	n := d.TryPushBackRange([]int{1, 2, 3}, 2)
	assert.Equal(t, 3, n)

	dst := make([]int, 5)
	n = d.TryPopFrontRange(dst, 1)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2, 3}, dst[:3])
}

func TestDequeRangePushRespectsSizeHint(t *testing.T) {
	d := NewDeque[int](2)
	require.True(t, d.TryPushBack(1))
	n := d.TryPushBackRange([]int{2, 3, 4}, 3)
	assert.Equal(t, 0, n, "only 1 free slot but sizeHint 3 requires at least 3")
}

func TestDequeReopen(t *testing.T) {
	d := NewDeque[int](2)
	d.Close()
	assert.True(t, d.Closed())
	d.Reopen()
	assert.False(t, d.Closed())
	assert.True(t, d.TryPushBack(1))
}
