// Package tenant maps the organization slug in the current route to the
// tenant id the backend expects in the x-tenant-id header.
package tenant

import (
	"context"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/medadmin/internal/client/repositories/metadata"
)

const keyPrefix = "tenant:"

// routePattern matches /org/<slug>/... and /organizations/<slug>/...
var routePattern = regexp.MustCompile(`^/(?:org|organizations)/([A-Za-z0-9][A-Za-z0-9_-]*)(?:/|$)`)

type Resolver struct {
	repo metadata.Repository
}

func NewResolver(repo metadata.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// SlugFromRoute extracts the organization slug, lowercased.
func SlugFromRoute(route string) (string, bool) {
	m := routePattern.FindStringSubmatch(route)
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

// Resolve returns the cached tenant id for the organization in route.
// Lookup failures are treated as "no tenant": the request then goes out
// unscoped and the backend decides.
func (r *Resolver) Resolve(ctx context.Context, route string) (string, bool) {
	slug, ok := SlugFromRoute(route)
	if !ok {
		return "", false
	}
	v, err := r.repo.Get(ctx, keyPrefix+slug)
	if err != nil || len(v) == 0 {
		return "", false
	}
	return string(v), true
}

// Remember caches the tenant id of an organization slug.
func (r *Resolver) Remember(ctx context.Context, slug, tenantID string) error {
	return r.repo.Set(ctx, keyPrefix+strings.ToLower(slug), []byte(tenantID))
}

// Forget drops the cached id of slug.
func (r *Resolver) Forget(ctx context.Context, slug string) error {
	return r.repo.Delete(ctx, keyPrefix+strings.ToLower(slug))
}
