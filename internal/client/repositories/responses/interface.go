// Package responses persists GET responses so they can be served while the
// client is offline.
package responses

import (
	"context"

	"github.com/dmitrijs2005/medadmin/internal/client/models"
)

type Repository interface {
	Put(ctx context.Context, r *models.CachedResponse) error
	Get(ctx context.Context, path string) (*models.CachedResponse, error)
	Delete(ctx context.Context, path string) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
