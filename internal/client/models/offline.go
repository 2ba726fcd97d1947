package models

import (
	"encoding/json"
	"time"
)

// CachedResponse is a GET response kept for offline reads.
type CachedResponse struct {
	Path     string
	Body     json.RawMessage
	CachedAt time.Time
}

// QueuedRequest is a write captured while offline, replayed in order later.
type QueuedRequest struct {
	ID        string
	Method    string
	Path      string
	Body      json.RawMessage
	CreatedAt time.Time
}
