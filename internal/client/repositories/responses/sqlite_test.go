package responses

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/medadmin/internal/client/models"
	"github.com/dmitrijs2005/medadmin/internal/client/storage"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "r.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRepository(db)
}

func TestPutGet(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	at := time.UnixMilli(1_700_000_000_123)

	require.NoError(t, r.Put(ctx, &models.CachedResponse{Path: "/patients", Body: json.RawMessage(`[1]`), CachedAt: at}))
	require.NoError(t, r.Put(ctx, &models.CachedResponse{Path: "/patients", Body: json.RawMessage(`[1,2]`), CachedAt: at}))

	got, err := r.Get(ctx, "/patients")
	require.NoError(t, err)
	require.JSONEq(t, `[1,2]`, string(got.Body))
	require.True(t, at.Equal(got.CachedAt))

	n, err := r.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestGet_Missing(t *testing.T) {
	got, err := newRepo(t).Get(context.Background(), "/nope")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDeleteAndClear(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, &models.CachedResponse{Path: "/a", Body: json.RawMessage(`{}`)}))
	require.NoError(t, r.Put(ctx, &models.CachedResponse{Path: "/b", Body: json.RawMessage(`{}`)}))

	require.NoError(t, r.Delete(ctx, "/a"))
	got, err := r.Get(ctx, "/a")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, r.Clear(ctx))
	n, err := r.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}
