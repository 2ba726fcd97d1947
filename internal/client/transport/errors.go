package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/medadmin/internal/common"
)

// ErrUnavailable is common.ErrUnavailable so callers outside transport can
// match it without importing this package.
var ErrUnavailable = common.ErrUnavailable

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

func newStatusError(status int, body []byte) *StatusError {
	msg := parseMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &StatusError{StatusCode: status, Message: msg, Body: body}
}

// parseMessage reads the human readable message from the error envelopes
// the backend uses: {"message": ...}, {"error": "..."} and
// {"error": {"message": ...}}.
func parseMessage(body []byte) string {
	var env map[string]any
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if s, ok := env["message"].(string); ok && s != "" {
		return s
	}
	switch e := env["error"].(type) {
	case string:
		return e
	case map[string]any:
		if s, ok := e["message"].(string); ok {
			return s
		}
	}
	return ""
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
