// Package offline answers requests while the backend is unreachable: reads
// come from responses cached while online, writes are queued in an outbox
// and replayed later. It also keeps the credential verifier that lets a
// user sign in without the backend.
package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/medadmin/internal/client/models"
	"github.com/dmitrijs2005/medadmin/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/medadmin/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/medadmin/internal/client/repositories/responses"
	"github.com/dmitrijs2005/medadmin/internal/common"
	"github.com/dmitrijs2005/medadmin/internal/cryptox"
	"github.com/dmitrijs2005/medadmin/internal/dbx"
	"github.com/dmitrijs2005/medadmin/internal/logging"
	"github.com/google/uuid"
)

var ErrOfflineUnsupported = errors.New("request not supported offline")

const (
	keyEmail    = "offline:email"
	keySalt     = "offline:salt"
	keyVerifier = "offline:verifier"
	keyUser     = "offline:user"
)

// listKeys are probed, in order, for an array of items worth caching one by one.
var listKeys = [][]string{
	{},
	{"data"},
	{"data", "items"},
	{"data", "results"},
	{"items"},
	{"results"},
}

type Service struct {
	db  *sql.DB
	now func() time.Time
	log logging.Logger
}

func New(db *sql.DB, log logging.Logger) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{db: db, now: time.Now, log: log}
}

// MakeRequest answers a request without the backend. body is nil, a
// json.RawMessage, a *models.Multipart or any JSON-serializable value.
func (s *Service) MakeRequest(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	if strings.EqualFold(method, "get") {
		cached, err := responses.NewSQLiteRepository(s.db).Get(ctx, path)
		if err != nil {
			return nil, err
		}
		if cached == nil {
			return nil, fmt.Errorf("%w: %s", common.ErrLocalDataNotAvailable, path)
		}
		return cached.Body, nil
	}

	if _, ok := body.(*models.Multipart); ok {
		return nil, fmt.Errorf("%w: %s %s carries files", ErrOfflineUnsupported, strings.ToUpper(method), path)
	}

	raw, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	q := &models.QueuedRequest{
		ID:        uuid.NewString(),
		Method:    strings.ToLower(method),
		Path:      path,
		Body:      raw,
		CreatedAt: s.now(),
	}
	if err := outbox.NewSQLiteRepository(s.db).Enqueue(ctx, q); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "queued offline write", "method", q.Method, "path", path, "id", q.ID)

	return json.Marshal(map[string]any{"queued": true, "id": q.ID})
}

// CacheResponse stores body as the offline answer for path.
func (s *Service) CacheResponse(ctx context.Context, path string, body json.RawMessage) error {
	return responses.NewSQLiteRepository(s.db).Put(ctx, &models.CachedResponse{
		Path:     path,
		Body:     body,
		CachedAt: s.now(),
	})
}

// CacheItems stores each element of a list response under path/<id>, so a
// detail page opened offline finds the item it was listed with. It returns
// the number of items stored; responses that are not lists store nothing.
func (s *Service) CacheItems(ctx context.Context, path string, body json.RawMessage) (int, error) {
	items := findItems(body)
	if len(items) == 0 {
		return 0, nil
	}

	base := strings.TrimRight(path, "/")
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}

	n := 0
	now := s.now()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := responses.NewSQLiteRepository(tx)
		for _, item := range items {
			id := itemID(item)
			if id == "" {
				continue
			}
			if err := repo.Put(ctx, &models.CachedResponse{Path: base + "/" + id, Body: item, CachedAt: now}); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Pending lists the queued writes, oldest first.
func (s *Service) Pending(ctx context.Context) ([]*models.QueuedRequest, error) {
	return outbox.NewSQLiteRepository(s.db).List(ctx)
}

func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return outbox.NewSQLiteRepository(s.db).Count(ctx)
}

// Replay sends the queued writes in order and drops each one once sent. It
// stops at the first failure so later writes never overtake an earlier one.
func (s *Service) Replay(ctx context.Context, send func(ctx context.Context, q *models.QueuedRequest) error) (int, error) {
	repo := outbox.NewSQLiteRepository(s.db)
	queued, err := repo.List(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, q := range queued {
		if err := send(ctx, q); err != nil {
			return sent, fmt.Errorf("replay %s %s: %w", q.Method, q.Path, err)
		}
		if err := repo.Delete(ctx, q.ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// SaveCredentials keeps what an offline sign-in needs: the email, a salted
// verifier of the password and the user profile.
func (s *Service) SaveCredentials(ctx context.Context, email string, password []byte, user json.RawMessage) error {
	salt, verifier := cryptox.NewVerifier(password)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyEmail, []byte(normalizeEmail(email))); err != nil {
			return err
		}
		if err := repo.Set(ctx, keySalt, salt); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyVerifier, verifier); err != nil {
			return err
		}
		if len(user) > 0 {
			return repo.Set(ctx, keyUser, user)
		}
		return repo.Delete(ctx, keyUser)
	})
}

// VerifyCredentials checks email and password against the stored verifier
// and returns the cached user profile.
func (s *Service) VerifyCredentials(ctx context.Context, email string, password []byte) (json.RawMessage, error) {
	repo := metadata.NewSQLiteRepository(s.db)

	saved, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	salt, verifier := saved[keySalt], saved[keyVerifier]
	if len(salt) == 0 || len(verifier) == 0 {
		return nil, common.ErrLocalDataNotAvailable
	}
	if string(saved[keyEmail]) != normalizeEmail(email) {
		return nil, common.ErrUnauthorized
	}
	if !cryptox.CheckVerifier(password, salt, verifier) {
		return nil, common.ErrUnauthorized
	}
	return json.RawMessage(saved[keyUser]), nil
}

func (s *Service) ClearCredentials(ctx context.Context) error {
	return metadata.NewSQLiteRepository(s.db).Delete(ctx, keyEmail, keySalt, keyVerifier, keyUser)
}

// Clear drops the credentials and every cached response. Queued writes are
// kept for the next session.
func (s *Service) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := metadata.NewSQLiteRepository(tx).Delete(ctx, keyEmail, keySalt, keyVerifier, keyUser); err != nil {
			return err
		}
		return responses.NewSQLiteRepository(tx).Clear(ctx)
	})
}

func encodeBody(body any) (json.RawMessage, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return b, nil
	case []byte:
		return json.RawMessage(b), nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		return raw, nil
	}
}

func findItems(body json.RawMessage) []json.RawMessage {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil
	}

	for _, keys := range listKeys {
		v := root
		for _, k := range keys {
			m, ok := v.(map[string]any)
			if !ok {
				v = nil
				break
			}
			v = m[k]
		}
		arr, ok := v.([]any)
		if !ok || len(arr) == 0 {
			continue
		}
		out := make([]json.RawMessage, 0, len(arr))
		for _, el := range arr {
			if _, ok := el.(map[string]any); !ok {
				continue
			}
			raw, err := json.Marshal(el)
			if err != nil {
				continue
			}
			out = append(out, raw)
		}
		return out
	}
	return nil
}

func itemID(item json.RawMessage) string {
	var probe struct {
		ID      any `json:"id"`
		MongoID any `json:"_id"`
	}
	if err := json.Unmarshal(item, &probe); err != nil {
		return ""
	}
	id := probe.ID
	if id == nil {
		id = probe.MongoID
	}
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
