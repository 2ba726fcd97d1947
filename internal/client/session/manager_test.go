package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ZeroValueIsIdle(t *testing.T) {
	var m Manager
	assert.Equal(t, Idle, m.State())
	assert.False(t, m.Refreshing())
	assert.False(t, m.Redirecting())
}

func TestTryAcquireRefresh_SingleLeader(t *testing.T) {
	m := NewManager()

	f1, leader := m.TryAcquireRefresh()
	require.True(t, leader)
	require.NotNil(t, f1)
	assert.Equal(t, Refreshing, m.State())

	f2, leader := m.TryAcquireRefresh()
	require.False(t, leader)
	require.Same(t, f1, f2)

	m.ReleaseRefresh("T2", nil)
	assert.Equal(t, Idle, m.State())

	f3, leader := m.TryAcquireRefresh()
	require.True(t, leader)
	require.NotSame(t, f1, f3)
}

func TestReleaseRefresh_BroadcastsToAllWaiters(t *testing.T) {
	m := NewManager()
	f, leader := m.TryAcquireRefresh()
	require.True(t, leader)

	const n = 20
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		follower, isLeader := m.TryAcquireRefresh()
		require.False(t, isLeader)
		require.Same(t, f, follower)

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := follower.Wait(context.Background(), time.Second)
			if err == nil {
				results[i] = tok
			}
		}(i)
	}

	m.ReleaseRefresh("T2", nil)
	wg.Wait()

	for i, r := range results {
		assert.Equal(t, "T2", r, "waiter %d", i)
	}

	tok, err := f.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "T2", tok)
}

func TestReleaseRefresh_PropagatesError(t *testing.T) {
	m := NewManager()
	f, _ := m.TryAcquireRefresh()
	boom := errors.New("refresh failed")

	m.ReleaseRefresh("", boom)

	_, err := f.Wait(context.Background(), time.Second)
	require.ErrorIs(t, err, boom)

	require.NotPanics(t, func() { m.ReleaseRefresh("", nil) })
}

func TestFlightWait_TimeoutAndCancel(t *testing.T) {
	m := NewManager()
	f, _ := m.TryAcquireRefresh()

	_, err := f.Wait(context.Background(), 10*time.Millisecond)
	require.ErrorIs(t, err, ErrWaitTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Wait(ctx, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLatchRedirect_OneShot(t *testing.T) {
	m := NewManager()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.LatchRedirect() {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, Cooldown, m.State())

	f, leader := m.TryAcquireRefresh()
	assert.Nil(t, f)
	assert.False(t, leader, "no refresh may start while latched")

	m.ClearRedirect()
	assert.Equal(t, Idle, m.State())
	assert.True(t, m.LatchRedirect())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "refreshing", Refreshing.String())
	assert.Equal(t, "cooldown", Cooldown.String())
	assert.Equal(t, "unknown", State(9).String())
}
