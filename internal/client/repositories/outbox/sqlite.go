package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/medadmin/internal/client/models"
	"github.com/dmitrijs2005/medadmin/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, q *models.QueuedRequest) error {
	createdAt := q.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO outbox (id, method, path, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		q.ID, q.Method, q.Path, []byte(q.Body), createdAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	return nil
}

// List returns queued requests in the order they were enqueued.
func (r *SQLiteRepository) List(ctx context.Context) ([]*models.QueuedRequest, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, method, path, body, created_at FROM outbox ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to select queued requests: %w", err)
	}
	defer rows.Close()

	var result []*models.QueuedRequest
	for rows.Next() {
		var (
			q         models.QueuedRequest
			body      []byte
			createdAt int64
		)
		if err := rows.Scan(&q.ID, &q.Method, &q.Path, &body, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan queued request: %w", err)
		}
		q.Body = body
		q.CreatedAt = time.UnixMilli(createdAt)
		result = append(result, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete queued request: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queued requests: %w", err)
	}
	return n, nil
}
