package gateway

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/medadmin/internal/client/transport"
)

var (
	// ErrSessionExpired means the session could not be refreshed and was
	// torn down. The caller has been (or is being) sent to the login route.
	ErrSessionExpired = errors.New("session expired")

	// ErrRedirectInProgress is returned for auth failures that arrive after
	// the session was already torn down. Nothing else happens for them.
	ErrRedirectInProgress = errors.New("redirect to login in progress")

	ErrNoRefreshToken    = errors.New("no refresh token")
	ErrNoTokenInResponse = errors.New("response carries no access token")
	ErrReadsAborted      = errors.New("read aborted")
)

// authMessages mark an error as an auth failure even without a 401.
var authMessages = []string{
	"unauthorized",
	"unauthenticated",
	"token expired",
	"invalid token",
	"jwt expired",
}

func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	var se *transport.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range authMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// isIrrecoverable tells a refresh failure that ends the session from one
// that may go away on its own, like a network error.
func isIrrecoverable(err error) bool {
	if errors.Is(err, ErrNoRefreshToken) || errors.Is(err, ErrNoTokenInResponse) {
		return true
	}
	var se *transport.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound:
			return true
		}
	}
	return false
}
