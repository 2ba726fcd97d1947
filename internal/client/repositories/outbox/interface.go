// Package outbox queues writes issued while offline so they can be
// replayed, in order, once the backend is reachable again.
package outbox

import (
	"context"

	"github.com/dmitrijs2005/medadmin/internal/client/models"
)

type Repository interface {
	Enqueue(ctx context.Context, q *models.QueuedRequest) error
	List(ctx context.Context) ([]*models.QueuedRequest, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
