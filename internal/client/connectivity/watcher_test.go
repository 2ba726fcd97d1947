package connectivity

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

type fakePinger struct {
	fail  atomic.Bool
	calls atomic.Int32
}

func (p *fakePinger) Ping(ctx context.Context) error {
	p.calls.Add(1)
	if p.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestWatcher_StartsOnline(t *testing.T) {
	w := NewWatcher(&fakePinger{}, time.Second, nil)
	assert.True(t, w.IsOnline())
	assert.Equal(t, ModeOnline, w.Mode())
}

func TestWatcher_CheckFlipsMode(t *testing.T) {
	p := &fakePinger{}
	w := NewWatcher(p, time.Second, nil)

	var changes []Mode
	w.OnChange(func(m Mode) { changes = append(changes, m) })

	p.fail.Store(true)
	w.Check(context.Background())
	assert.False(t, w.IsOnline())

	w.Check(context.Background())

	p.fail.Store(false)
	w.Check(context.Background())
	assert.True(t, w.IsOnline())

	assert.Equal(t, []Mode{ModeOffline, ModeOnline}, changes, "one notification per transition")
}

func TestWatcher_SetOnline(t *testing.T) {
	w := NewWatcher(&fakePinger{}, time.Second, nil)
	w.SetOnline(context.Background(), false)
	assert.Equal(t, ModeOffline, w.Mode())
	w.SetOnline(context.Background(), true)
	assert.Equal(t, ModeOnline, w.Mode())
}

func TestWatcher_RunStopsWithContext(t *testing.T) {
	p := &fakePinger{}
	p.fail.Store(true)
	w := NewWatcher(p, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()

	require.Eventually(t, func() bool { return !w.IsOnline() }, time.Second, 5*time.Millisecond)
	cancel()
	wg.Wait()
	assert.Positive(t, p.calls.Load())
}
