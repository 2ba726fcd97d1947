package responses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/medadmin/internal/client/models"
	"github.com/dmitrijs2005/medadmin/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Put upserts the response cached for r.Path.
func (r *SQLiteRepository) Put(ctx context.Context, resp *models.CachedResponse) error {
	cachedAt := resp.CachedAt
	if cachedAt.IsZero() {
		cachedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO responses (path, body, cached_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET body = excluded.body, cached_at = excluded.cached_at
	`, resp.Path, []byte(resp.Body), cachedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to cache response[%s]: %w", resp.Path, err)
	}
	return nil
}

// Get returns (nil, nil) when nothing is cached for path.
func (r *SQLiteRepository) Get(ctx context.Context, path string) (*models.CachedResponse, error) {
	var (
		body     []byte
		cachedAt int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT body, cached_at FROM responses WHERE path = ?`, path).
		Scan(&body, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached response[%s]: %w", path, err)
	}
	return &models.CachedResponse{Path: path, Body: body, CachedAt: time.UnixMilli(cachedAt)}, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, path string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM responses WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete cached response[%s]: %w", path, err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cached responses: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM responses`); err != nil {
		return fmt.Errorf("failed to clear cached responses: %w", err)
	}
	return nil
}
