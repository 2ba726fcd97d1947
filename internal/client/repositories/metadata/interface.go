package metadata

import (
	"context"
	"time"
)

// Repository is a key/value store with optional per-key expiry. Expired
// values read as absent.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithExpiry(ctx context.Context, key string, value []byte, expiresAt time.Time) error
	ExpiresAt(ctx context.Context, key string) (time.Time, bool, error)
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
