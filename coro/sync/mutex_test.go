package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexFIFO(t *testing.T) {
	m := NewMutex()
	ctx := context.Background()
	require.NoError(t, m.Lock(ctx))

	var order []int
	done := make(chan struct{})
	start := make(chan struct{})
	for i := 1; i <= 3; i++ {
		i := i
		go func() {
			<-start
			require.NoError(t, m.Lock(ctx))
			order = append(order, i)
			m.Unlock()
			if i == 3 {
				close(done)
			}
		}()
	}
	close(start)
	time.Sleep(20 * time.Millisecond) // let all three queue up
	m.Unlock()
	<-done
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestLatchCountDownWakesAllAtOnce(t *testing.T) {
	l := NewLatch(3)
	ctx := context.Background()
	results := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		go func() {
			require.NoError(t, l.Wait(ctx))
			results <- struct{}{}
		}()
	}
	time.Sleep(10 * time.Millisecond)
	l.CountDown(2)
	select {
	case <-results:
		t.Fatal("latch fired before counter reached zero")
	case <-time.After(10 * time.Millisecond):
	}
	l.CountDown(1)
	for i := 0; i < 3; i++ {
		<-results
	}
}

func TestSyncLatch(t *testing.T) {
	l := NewSyncLatch(2)
	done := make(chan struct{})
	go func() {
		l.Wait()
		close(done)
	}()
	l.CountDown(1)
	select {
	case <-done:
		t.Fatal("fired early")
	case <-time.After(5 * time.Millisecond):
	}
	l.CountDown(1)
	<-done
}
