// Package common contains shared constants and sentinel errors used across
// the medadmin client components.
package common

import "time"

// Header names attached to outbound API requests.
const (
	AuthorizationHeaderName = "Authorization"
	TenantHeaderName        = "x-tenant-id"
	RequestIDHeaderName     = "X-Request-ID"
)

// Keys of the persisted client state.
const (
	AccessTokenKey  = "auth_token"
	RefreshTokenKey = "refresh_token"
	UserKey         = "user"
	MFATokenKey     = "mfa_token"
)

// Local lifetimes of the persisted tokens. They are independent of the
// expiry claim embedded in the access token.
const (
	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
	UserTTL         = 24 * time.Hour
)
