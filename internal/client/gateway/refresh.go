package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/medadmin/internal/client/jwtx"
	"github.com/dmitrijs2005/medadmin/internal/client/session"
	"github.com/dmitrijs2005/medadmin/internal/client/transport"
	"github.com/dmitrijs2005/medadmin/internal/common"
	"github.com/dmitrijs2005/medadmin/internal/metrics"
	"github.com/google/uuid"
)

// tokenForRequest returns the access token to send, refreshing it first
// when it is about to expire. Only a refresh that ended the session is an
// error; any other failure leaves the current token in place and the 401
// path deals with it.
func (g *Gateway) tokenForRequest(ctx context.Context) (string, error) {
	access, err := g.tokens.AccessToken(ctx)
	if err != nil {
		g.log.Warn(ctx, "failed to read access token", "error", err)
		return "", nil
	}
	if access == "" || g.session.Redirecting() {
		return access, nil
	}

	refresh, err := g.tokens.RefreshToken(ctx)
	if err != nil || refresh == "" {
		// Without a refresh token there is nothing to do but try the
		// current one.
		return access, nil
	}

	if !jwtx.IsExpiring(access, g.cfg.RefreshBuffer, g.now()) {
		return access, nil
	}

	fresh, err := g.refresh(ctx, access, false)
	switch {
	case err == nil:
		return fresh, nil
	case errors.Is(err, ErrSessionExpired):
		return "", err
	default:
		g.log.Warn(ctx, "proactive refresh failed, using current token", "error", err)
		return access, nil
	}
}

// refresh replaces stale, the token the caller holds, with a new one. The
// first caller runs the refresh; callers arriving while it runs wait for its
// outcome. An irrecoverable failure tears the session down and comes back
// as ErrSessionExpired.
func (g *Gateway) refresh(ctx context.Context, stale string, reactive bool) (string, error) {
	flight, leader := g.session.TryAcquireRefresh()
	if flight == nil {
		g.metrics.Refresh(metrics.RefreshSkipped)
		return "", ErrRedirectInProgress
	}

	if !leader {
		token, err := flight.Wait(ctx, g.cfg.RefreshWaitTimeout)
		g.metrics.Refresh(metrics.RefreshWaited)
		if errors.Is(err, session.ErrWaitTimeout) {
			g.log.Warn(ctx, "gave up waiting for token refresh", "timeout", g.cfg.RefreshWaitTimeout)
		}
		return token, err
	}

	// The refresh outlives the caller that started it: others are waiting
	// on its result.
	bctx := context.WithoutCancel(ctx)

	// A refresh that finished just before this one started may already
	// have done the work. After a 401 any other token is worth one try.
	if current, err := g.tokens.AccessToken(bctx); err == nil && current != "" && current != stale &&
		(reactive || !jwtx.IsExpiring(current, g.cfg.RefreshBuffer, g.now())) {
		g.session.ReleaseRefresh(current, nil)
		return current, nil
	}

	token, err := g.callRefresh(bctx)
	if err != nil {
		g.metrics.Refresh(metrics.RefreshFailed)
		if isIrrecoverable(err) {
			g.log.Warn(ctx, "token refresh rejected, ending session", "reactive", reactive, "error", err)
			g.teardown(bctx)
			err = fmt.Errorf("%w: %w", ErrSessionExpired, err)
		} else {
			g.log.Warn(ctx, "token refresh failed", "reactive", reactive, "error", err)
		}
	} else {
		g.metrics.Refresh(metrics.RefreshSuccess)
		g.log.Debug(ctx, "token refreshed", "reactive", reactive)
	}

	g.session.ReleaseRefresh(token, err)
	return token, err
}

func (g *Gateway) callRefresh(ctx context.Context) (string, error) {
	refreshToken, err := g.tokens.RefreshToken(ctx)
	if err != nil {
		return "", fmt.Errorf("read refresh token: %w", err)
	}
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return "", err
	}

	resp, err := g.transport.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   g.apiPath(g.cfg.RefreshPath),
		Header: http.Header{
			"Accept":                   []string{"application/json"},
			"Content-Type":             []string{"application/json"},
			common.RequestIDHeaderName: []string{uuid.NewString()},
		},
		Body: body,
	})
	if err != nil {
		return "", fmt.Errorf("refresh request: %w", err)
	}

	ts := extractTokens(resp.Body)
	if ts.AccessToken == "" {
		return "", ErrNoTokenInResponse
	}
	if err := g.tokens.SaveTokens(ctx, ts); err != nil {
		return "", fmt.Errorf("save refreshed tokens: %w", err)
	}
	return ts.AccessToken, nil
}

// teardown clears the session and heads for the login route. The redirect
// latch makes it run once per failure episode, however many requests fail
// together.
func (g *Gateway) teardown(ctx context.Context) {
	if !g.session.LatchRedirect() {
		return
	}
	g.metrics.Redirect()

	if err := g.tokens.Clear(ctx); err != nil {
		g.log.Error(ctx, "failed to clear session storage", "error", err)
	}

	if g.nav.CurrentPath() == g.cfg.LoginRoute {
		g.after(g.cfg.LoginResetDelay, g.session.ClearRedirect)
		return
	}
	g.after(g.cfg.RedirectDelay, func() {
		g.nav.Navigate(g.cfg.LoginRoute)
	})
}
