// Package models defines client-side data models of the medadmin client.
package models

import (
	"encoding/json"
	"time"
)

// SessionUser is the denormalized profile cached next to the tokens so the
// UI can show who is signed in without a network round trip. Raw keeps the
// backend payload as received, since its shape is not fixed.
type SessionUser struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email,omitempty"`
	Roles []string        `json:"roles,omitempty"`
	Raw   json.RawMessage `json:"-"`
}

// DecodeSessionUser parses a cached profile. The backend has used both
// "id" and "_id", and both "name" and "first_name"/"last_name".
func DecodeSessionUser(raw []byte) (*SessionUser, error) {
	var loose struct {
		ID        any      `json:"id"`
		MongoID   any      `json:"_id"`
		Name      string   `json:"name"`
		FirstName string   `json:"first_name"`
		LastName  string   `json:"last_name"`
		Email     string   `json:"email"`
		Roles     []any    `json:"roles"`
		Role      string   `json:"role"`
		RoleNames []string `json:"role_names"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil, err
	}

	u := &SessionUser{Email: loose.Email, Raw: append(json.RawMessage(nil), raw...)}

	switch {
	case loose.ID != nil:
		u.ID = stringify(loose.ID)
	case loose.MongoID != nil:
		u.ID = stringify(loose.MongoID)
	}

	u.Name = loose.Name
	if u.Name == "" {
		u.Name = joinNonEmpty(loose.FirstName, loose.LastName)
	}

	for _, r := range loose.Roles {
		switch v := r.(type) {
		case string:
			u.Roles = append(u.Roles, v)
		case map[string]any:
			if name, ok := v["name"].(string); ok {
				u.Roles = append(u.Roles, name)
			}
		}
	}
	u.Roles = append(u.Roles, loose.RoleNames...)
	if loose.Role != "" {
		u.Roles = append(u.Roles, loose.Role)
	}

	return u, nil
}

// Credentials are what the user types on the login screen.
type Credentials struct {
	Email    string `json:"email"`
	Password []byte `json:"-"`
	// Organization is the tenant slug, if the login form asked for one.
	Organization string `json:"organization,omitempty"`
}

// TokenSet is what a login or refresh response yields once parsed.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	User         json.RawMessage
}

// Diagnostics is a point-in-time view of the session, for debugging.
type Diagnostics struct {
	HasAccessToken       bool       `json:"has_access_token"`
	HasRefreshToken      bool       `json:"has_refresh_token"`
	HasUser              bool       `json:"has_user"`
	AccessTokenExpiresAt *time.Time `json:"access_token_expires_at,omitempty"`
	AccessTokenExpiresIn string     `json:"access_token_expires_in,omitempty"`
	AccessTokenMalformed bool       `json:"access_token_malformed"`
	NeedsRefresh         bool       `json:"needs_refresh"`
	State                string     `json:"state"`
	Refreshing           bool       `json:"refreshing"`
	Redirecting          bool       `json:"redirecting"`
	Online               bool       `json:"online"`
	PendingWrites        int        `json:"pending_writes"`
	CurrentRoute         string     `json:"current_route"`
}
