// Package session holds the refresh state machine shared by every request
// a client issues.
//
// States:
//
//	Idle        no refresh in flight, no forced logout pending
//	Refreshing  one refresh call in flight; other callers wait on its Flight
//	Cooldown    the session was torn down and a redirect to login latched;
//	            no refresh may start until ClearRedirect
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrWaitTimeout = errors.New("timed out waiting for token refresh")

type State int

const (
	Idle State = iota
	Refreshing
	Cooldown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	case Cooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Flight is one in-flight refresh. Its outcome is broadcast to every waiter
// exactly once.
type Flight struct {
	done  chan struct{}
	token string
	err   error
}

// Wait blocks until the flight finishes, timeout elapses or ctx is done.
func (f *Flight) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.token, f.err
	case <-timer.C:
		return "", ErrWaitTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Done is closed when the flight finishes.
func (f *Flight) Done() <-chan struct{} {
	return f.done
}

// Manager is safe for concurrent use. The zero value is ready in Idle.
type Manager struct {
	mu          sync.Mutex
	flight      *Flight
	redirecting bool
}

func NewManager() *Manager {
	return &Manager{}
}

// TryAcquireRefresh starts a refresh if none is running. The leader gets a
// fresh flight and true; followers get the running flight and false. While
// the redirect latch is set it returns (nil, false).
func (m *Manager) TryAcquireRefresh() (*Flight, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.redirecting {
		return nil, false
	}
	if m.flight != nil {
		return m.flight, false
	}
	m.flight = &Flight{done: make(chan struct{})}
	return m.flight, true
}

// ReleaseRefresh ends the running flight and hands its outcome to the
// waiters. Calling it with no flight running is a no-op.
func (m *Manager) ReleaseRefresh(token string, err error) {
	m.mu.Lock()
	f := m.flight
	m.flight = nil
	m.mu.Unlock()

	if f == nil {
		return
	}
	f.token, f.err = token, err
	close(f.done)
}

// LatchRedirect sets the one-shot redirect latch. Only the first caller
// gets true; that caller owns the teardown.
func (m *Manager) LatchRedirect() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.redirecting {
		return false
	}
	m.redirecting = true
	return true
}

// ClearRedirect resets the latch after a successful login.
func (m *Manager) ClearRedirect() {
	m.mu.Lock()
	m.redirecting = false
	m.mu.Unlock()
}

func (m *Manager) Refreshing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flight != nil
}

func (m *Manager) Redirecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.redirecting
}

// State reports Cooldown over Refreshing: a latched session is what the
// caller needs to know about.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.redirecting:
		return Cooldown
	case m.flight != nil:
		return Refreshing
	default:
		return Idle
	}
}
