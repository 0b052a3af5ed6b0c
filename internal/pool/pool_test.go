package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedRunsSubmittedTasks(t *testing.T) {
	p := NewFixed("test", 2, 4)
	defer func() { p.Shutdown(); p.Wait() }()

	var n int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			atomic.AddInt64(&n, 1)
		}))
	}
	wg.Wait()
	assert.EqualValues(t, 8, n)
}

func TestFixedRejectsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	p := NewFixed("test", 1, 1)
	defer func() { close(block); p.Shutdown(); p.Wait() }()

	require.NoError(t, p.Submit(func() { <-block }))
	require.NoError(t, p.Submit(func() {})) // fills the queue of size 1

	// give the worker a moment to pick up the queued task isn't guaranteed;
	// instead submit enough extra to guarantee the queue is saturated.
	var rejected bool
	for i := 0; i < 10; i++ {
		if err := p.Submit(func() {}); err != nil {
			var re *RejectedError
			assert.ErrorAs(t, err, &re)
			rejected = true
			break
		}
	}
	assert.True(t, rejected, "expected at least one submission to be rejected while the pool is saturated")
}

func TestDynamicRejectsBeyondMaxWithoutFallback(t *testing.T) {
	d := NewDynamic("test", 1, 1, false)
	block := make(chan struct{})
	defer close(block)

	require.NoError(t, d.Submit(func() { <-block }))
	time.Sleep(10 * time.Millisecond) // let the goroutine claim the semaphore slot

	err := d.Submit(func() {})
	var re *RejectedError
	assert.ErrorAs(t, err, &re)
}

func TestDynamicFallsBackWhenConfigured(t *testing.T) {
	d := NewDynamic("test", 1, 1, true)
	block := make(chan struct{})
	defer close(block)

	require.NoError(t, d.Submit(func() { <-block }))
	time.Sleep(10 * time.Millisecond)

	var ran int64
	require.NoError(t, d.Submit(func() { atomic.AddInt64(&ran, 1) }))
	time.Sleep(10 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt64(&ran))
}

func TestBoundedFallsBackInsteadOfRejecting(t *testing.T) {
	block := make(chan struct{})
	p := NewBounded("test", 1, 1)
	defer func() { close(block); p.Shutdown(); p.Wait() }()

	require.NoError(t, p.Submit(func() { <-block }))
	require.NoError(t, p.Submit(func() {}))

	var ran int64
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(func() { atomic.AddInt64(&ran, 1) }))
	}
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 5, atomic.LoadInt64(&ran))
}

func TestNewManagerValidatesArguments(t *testing.T) {
	_, err := NewManager(0, 1, 1)
	assert.Error(t, err)

	_, err = NewManager(1, 1, 0)
	assert.Error(t, err)

	m, err := NewManager(2, 4, 2)
	require.NoError(t, err)
	require.NotNil(t, m)
	m.Shutdown()
	m.Wait()
}
