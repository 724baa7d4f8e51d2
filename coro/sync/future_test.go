package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joeycumines/go-coro/coro/wait"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureSetThenWait(t *testing.T) {
	f, p := NewFuture[int]()
	p.Set(42)
	state, val, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Ready, state)
	assert.Equal(t, 42, val)
}

func TestFutureWaitBlocksUntilSet(t *testing.T) {
	f, p := NewFuture[int]()
	done := make(chan struct{})
	go func() {
		state, val, err := f.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Ready, state)
		assert.Equal(t, 7, val)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	p.Set(7)
	<-done
}

func TestFutureTimeout(t *testing.T) {
	f, _ := NewFuture[int]()
	state, _, err := f.WaitFor(context.Background(), wait.WithTimeout(5*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, Timeout, state)
}

func TestFutureBroken(t *testing.T) {
	f, p := NewFuture[int]()
	p.Break()
	state, _, _ := f.Wait(context.Background())
	assert.Equal(t, Broken, state)
}

func TestFutureSetCallbackFiresImmediatelyIfSettled(t *testing.T) {
	f, p := NewFuture[int]()
	p.Set(1)
	called := false
	f.SetCallback(func(state FutureState, val int, err error) {
		called = true
		assert.Equal(t, Ready, state)
		assert.Equal(t, 1, val)
	})
	assert.True(t, called)
}

func TestFutureSetCallbackFiresOnceAtSetTime(t *testing.T) {
	f, p := NewFuture[int]()
	ch := make(chan int, 1)
	f.SetCallback(func(state FutureState, val int, err error) {
		ch <- val
	})
	p.Set(9)
	assert.Equal(t, 9, <-ch)
}

func TestDetachTaskSetsException(t *testing.T) {
	f, p := NewFuture[int]()
	DetachTask(p, func() (int, error) {
		return 0, errors.New("boom")
	})
	state, _, err := f.Wait(context.Background())
	assert.Equal(t, Exception, state)
	assert.EqualError(t, err, "boom")
}

func TestDetachTaskRecoversPanic(t *testing.T) {
	f, p := NewFuture[int]()
	DetachTask(p, func() (int, error) {
		panic("kaboom")
	})
	state, _, err := f.Wait(context.Background())
	assert.Equal(t, Exception, state)
	require.Error(t, err)
}
