// Package jwtx reads the expiry claim of an access token on the client.
//
// The signature is not verified: the client cannot hold the signing key and
// only needs the claim to decide when to refresh. Anything that cannot be
// decoded counts as expired, so a bad token leads to a refresh or a logout
// rather than being trusted.
package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrNoExpiry       = errors.New("token has no exp claim")
)

var parser = jwt.NewParser()

// ExpiresAt returns the exp claim of token.
func ExpiresAt(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// IsExpiring reports whether token expires at or before now+buffer.
// Malformed tokens and tokens without exp are reported as expiring.
func IsExpiring(token string, buffer time.Duration, now time.Time) bool {
	exp, err := ExpiresAt(token)
	if err != nil {
		return true
	}
	return !exp.After(now.Add(buffer))
}
