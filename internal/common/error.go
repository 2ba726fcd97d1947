package common

import "errors"

// Connectivity and auth outcomes shared by the gateway and the offline
// service. Callers should use errors.Is to match these values.
var (
	ErrUnavailable           = errors.New("server unavailable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)
