// Package tokenstore keeps the persisted session state: access token,
// refresh token and the cached user profile, each with its own local
// lifetime.
package tokenstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/medadmin/internal/client/models"
	"github.com/dmitrijs2005/medadmin/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/medadmin/internal/common"
	"github.com/dmitrijs2005/medadmin/internal/dbx"
)

// sessionKeys are removed together when the session is torn down.
var sessionKeys = []string{
	common.AccessTokenKey,
	common.RefreshTokenKey,
	common.UserKey,
	common.MFATokenKey,
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock replaces the time source for expiry bookkeeping.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) repo(db dbx.DBTX) *metadata.SQLiteRepository {
	return metadata.NewSQLiteRepository(db).WithClock(s.now)
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.repo(s.db).Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, common.AccessTokenKey)
}

func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, common.RefreshTokenKey)
}

func (s *Store) SetAccessToken(ctx context.Context, token string) error {
	return s.repo(s.db).SetWithExpiry(ctx, common.AccessTokenKey, []byte(token), s.now().Add(common.AccessTokenTTL))
}

func (s *Store) SetRefreshToken(ctx context.Context, token string) error {
	return s.repo(s.db).SetWithExpiry(ctx, common.RefreshTokenKey, []byte(token), s.now().Add(common.RefreshTokenTTL))
}

// SaveTokens persists everything a login or refresh response yielded in one
// transaction. Empty fields leave the stored values alone.
func (s *Store) SaveTokens(ctx context.Context, ts models.TokenSet) error {
	now := s.now()
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		if ts.AccessToken != "" {
			if err := repo.SetWithExpiry(ctx, common.AccessTokenKey, []byte(ts.AccessToken), now.Add(common.AccessTokenTTL)); err != nil {
				return err
			}
		}
		if ts.RefreshToken != "" {
			if err := repo.SetWithExpiry(ctx, common.RefreshTokenKey, []byte(ts.RefreshToken), now.Add(common.RefreshTokenTTL)); err != nil {
				return err
			}
		}
		if len(ts.User) > 0 {
			if err := repo.SetWithExpiry(ctx, common.UserKey, ts.User, now.Add(common.UserTTL)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetUser caches the profile as JSON.
func (s *Store) SetUser(ctx context.Context, raw json.RawMessage) error {
	if !json.Valid(raw) {
		return fmt.Errorf("user profile is not valid JSON")
	}
	return s.repo(s.db).SetWithExpiry(ctx, common.UserKey, raw, s.now().Add(common.UserTTL))
}

// User returns the cached profile, or (nil, nil) when none is stored.
func (s *Store) User(ctx context.Context) (*models.SessionUser, error) {
	raw, err := s.repo(s.db).Get(ctx, common.UserKey)
	if err != nil || raw == nil {
		return nil, err
	}
	return models.DecodeSessionUser(raw)
}

// DropMFAToken removes the leftover token of the old two-step login.
func (s *Store) DropMFAToken(ctx context.Context) error {
	return s.repo(s.db).Delete(ctx, common.MFATokenKey)
}

// Clear removes tokens and the cached user in a single pass.
func (s *Store) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo(tx).Delete(ctx, sessionKeys...)
	})
}

// Expiry returns the local expiry of a stored key, for diagnostics.
func (s *Store) Expiry(ctx context.Context, key string) (time.Time, bool, error) {
	return s.repo(s.db).ExpiresAt(ctx, key)
}
