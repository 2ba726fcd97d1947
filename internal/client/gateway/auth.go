package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/medadmin/internal/client/models"
	"github.com/dmitrijs2005/medadmin/internal/client/transport"
	"github.com/dmitrijs2005/medadmin/internal/common"
	"github.com/google/uuid"
)

// Login signs in against the backend and stores the session. When the
// backend cannot be reached it falls back to the credentials verified at
// the last online login.
func (g *Gateway) Login(ctx context.Context, creds models.Credentials) (*models.SessionUser, error) {
	if g.conn == nil || g.conn.IsOnline() {
		user, err := g.onlineLogin(ctx, creds)
		if err == nil || !errors.Is(err, common.ErrUnavailable) {
			return user, err
		}
		g.log.Info(ctx, "backend unreachable, trying offline login", "error", err)
	}
	return g.offlineLogin(ctx, creds)
}

func (g *Gateway) onlineLogin(ctx context.Context, creds models.Credentials) (*models.SessionUser, error) {
	payload := map[string]string{
		"email":    creds.Email,
		"password": string(creds.Password),
	}
	if creds.Organization != "" {
		payload["organization"] = creds.Organization
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := g.transport.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   g.apiPath(g.cfg.LoginPath),
		Header: http.Header{
			"Accept":                   []string{"application/json"},
			"Content-Type":             []string{"application/json"},
			common.RequestIDHeaderName: []string{uuid.NewString()},
		},
		Body: body,
	})
	if err != nil {
		var se *transport.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusBadRequest) {
			return nil, fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	ts := extractTokens(resp.Body)
	if ts.AccessToken == "" {
		return nil, fmt.Errorf("login: %w", ErrNoTokenInResponse)
	}
	if err := g.tokens.SaveTokens(ctx, ts); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if err := g.tokens.DropMFAToken(ctx); err != nil {
		g.log.Warn(ctx, "failed to drop mfa token", "error", err)
	}
	if g.offline != nil {
		if err := g.offline.SaveCredentials(ctx, creds.Email, creds.Password, ts.User); err != nil {
			g.log.Warn(ctx, "failed to save offline credentials", "error", err)
		}
	}
	g.session.ClearRedirect()

	g.log.Info(ctx, "logged in", "email", creds.Email)
	return decodeUser(ts.User, creds.Email), nil
}

func (g *Gateway) offlineLogin(ctx context.Context, creds models.Credentials) (*models.SessionUser, error) {
	if g.offline == nil {
		return nil, common.ErrUnavailable
	}
	raw, err := g.offline.VerifyCredentials(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, fmt.Errorf("offline login: %w", err)
	}
	g.session.ClearRedirect()

	g.log.Info(ctx, "logged in offline", "email", creds.Email)
	return decodeUser(raw, creds.Email), nil
}

func decodeUser(raw json.RawMessage, email string) *models.SessionUser {
	if len(raw) > 0 {
		if u, err := models.DecodeSessionUser(raw); err == nil {
			if u.Email == "" {
				u.Email = email
			}
			return u
		}
	}
	return &models.SessionUser{Email: email}
}

// Logout clears the stored session and the offline cache and goes to the
// login route. Writes still queued are kept.
func (g *Gateway) Logout(ctx context.Context) error {
	var errs []error
	if err := g.tokens.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear session: %w", err))
	}
	if g.offline != nil {
		if err := g.offline.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear offline data: %w", err))
		}
	}
	if g.nav.CurrentPath() != g.cfg.LoginRoute {
		g.nav.Navigate(g.cfg.LoginRoute)
	}
	return errors.Join(errs...)
}

// CurrentUser returns the cached profile of the signed-in user, or nil.
func (g *Gateway) CurrentUser(ctx context.Context) (*models.SessionUser, error) {
	return g.tokens.User(ctx)
}

// SyncOutbox sends the writes queued while offline, oldest first. It
// stops at the first failure and reports how many were delivered.
func (g *Gateway) SyncOutbox(ctx context.Context) (int, error) {
	if g.conn != nil && !g.conn.IsOnline() {
		return 0, common.ErrUnavailable
	}
	return g.offline.Replay(ctx, func(ctx context.Context, q *models.QueuedRequest) error {
		m, err := ParseMethod(q.Method)
		if err != nil {
			return err
		}
		var body any
		if len(q.Body) > 0 {
			body = q.Body
		}
		_, err = g.do(ctx, call{method: m, path: q.Path, body: body, online: true})
		return err
	})
}
