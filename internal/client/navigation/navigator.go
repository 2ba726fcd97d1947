// Package navigation tracks the route the user is on. The gateway reads it
// to scope requests to a tenant and writes it when a session has to go back
// to the login screen.
package navigation

import "sync"

type Navigator interface {
	CurrentPath() string
	Navigate(path string)
}

// History is an in-process Navigator that remembers every visited route.
type History struct {
	mu      sync.Mutex
	current string
	visits  []string
	onVisit func(path string)
}

func NewHistory(start string) *History {
	return &History{current: start}
}

// OnNavigate registers fn to be called after every Navigate.
func (h *History) OnNavigate(fn func(path string)) {
	h.mu.Lock()
	h.onVisit = fn
	h.mu.Unlock()
}

func (h *History) CurrentPath() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *History) Navigate(path string) {
	h.mu.Lock()
	h.current = path
	h.visits = append(h.visits, path)
	fn := h.onVisit
	h.mu.Unlock()

	if fn != nil {
		fn(path)
	}
}

// Visits returns a copy of the routes passed to Navigate, oldest first.
func (h *History) Visits() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.visits...)
}
