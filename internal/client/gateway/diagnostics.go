package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/medadmin/internal/client/jwtx"
	"github.com/dmitrijs2005/medadmin/internal/client/models"
)

// Diagnose reports the session as seen right now. Read failures show up as
// missing values, never as an error.
func (g *Gateway) Diagnose(ctx context.Context) models.Diagnostics {
	d := models.Diagnostics{
		State:        g.session.State().String(),
		Refreshing:   g.session.Refreshing(),
		Redirecting:  g.session.Redirecting(),
		Online:       g.conn == nil || g.conn.IsOnline(),
		CurrentRoute: g.nav.CurrentPath(),
	}

	access, _ := g.tokens.AccessToken(ctx)
	refresh, _ := g.tokens.RefreshToken(ctx)
	user, _ := g.tokens.User(ctx)
	d.HasAccessToken = access != ""
	d.HasRefreshToken = refresh != ""
	d.HasUser = user != nil

	if access != "" {
		now := g.now()
		exp, err := jwtx.ExpiresAt(access)
		switch {
		case err == nil:
			d.AccessTokenExpiresAt = &exp
			d.AccessTokenExpiresIn = exp.Sub(now).Truncate(time.Second).String()
		case errors.Is(err, jwtx.ErrMalformedToken):
			d.AccessTokenMalformed = true
		}
		d.NeedsRefresh = jwtx.IsExpiring(access, g.cfg.RefreshBuffer, now)
	}

	if g.offline != nil {
		if n, err := g.offline.PendingCount(ctx); err == nil {
			d.PendingWrites = n
		}
	}
	return d
}
