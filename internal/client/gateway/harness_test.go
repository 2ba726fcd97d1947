package gateway

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/medadmin/internal/client/navigation"
	"github.com/dmitrijs2005/medadmin/internal/client/offline"
	"github.com/dmitrijs2005/medadmin/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/medadmin/internal/client/session"
	"github.com/dmitrijs2005/medadmin/internal/client/storage"
	"github.com/dmitrijs2005/medadmin/internal/client/tenant"
	"github.com/dmitrijs2005/medadmin/internal/client/tokenstore"
	"github.com/dmitrijs2005/medadmin/internal/client/transport"
	"github.com/dmitrijs2005/medadmin/internal/metrics"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*tokenstore.Store
	clears atomic.Int32
}

func (c *countingStore) Clear(ctx context.Context) error {
	c.clears.Add(1)
	return c.Store.Clear(ctx)
}

type fakeConn struct {
	offline atomic.Bool
}

func (f *fakeConn) IsOnline() bool { return !f.offline.Load() }

// harness is a gateway wired to real storage and an httptest backend.
type harness struct {
	t       *testing.T
	db      *sql.DB
	server  *httptest.Server
	gw      *Gateway
	tokens  *countingStore
	nav     *navigation.History
	offline *offline.Service
	tenants *tenant.Resolver
	conn    *fakeConn
	metrics *metrics.Metrics
	now     time.Time

	refreshCalls atomic.Int32
	loginCalls   atomic.Int32
	apiCalls     atomic.Int32

	mu      sync.Mutex
	api     http.HandlerFunc
	refresh http.HandlerFunc
	login   http.HandlerFunc
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "gw.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{
		t:       t,
		db:      db,
		tokens:  &countingStore{Store: tokenstore.New(db)},
		nav:     navigation.NewHistory("/dashboard"),
		offline: offline.New(db, nil),
		tenants: tenant.NewResolver(metadata.NewSQLiteRepository(db)),
		conn:    &fakeConn{},
		metrics: metrics.New(prometheus.NewRegistry()),
		now:     time.Now().Truncate(time.Second),
	}
	h.api = func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) }
	h.refresh = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) }
	h.login = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) }

	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		api, refresh, login := h.api, h.refresh, h.login
		h.mu.Unlock()

		switch r.URL.Path {
		case "/api/v1/auth/refresh-token":
			h.refreshCalls.Add(1)
			refresh(w, r)
		case "/api/v1/auth/login":
			h.loginCalls.Add(1)
			login(w, r)
		default:
			h.apiCalls.Add(1)
			api(w, r)
		}
	}))
	t.Cleanup(h.server.Close)

	tcfg := transport.DefaultConfig(h.server.URL)
	tcfg.MaxRetries = 0
	tcfg.Timeout = 5 * time.Second

	cfg := DefaultConfig()
	cfg.RedirectDelay = 10 * time.Millisecond
	cfg.LoginResetDelay = 20 * time.Millisecond
	cfg.RefreshWaitTimeout = 2 * time.Second

	h.gw = New(cfg, Deps{
		Transport:    transport.New(tcfg, nil),
		Tokens:       h.tokens,
		Session:      session.NewManager(),
		Offline:      h.offline,
		Connectivity: h.conn,
		Tenants:      h.tenants,
		Navigator:    h.nav,
		Metrics:      h.metrics,
	}).WithClock(func() time.Time { return h.now })
	t.Cleanup(func() { _ = h.gw.Close() })

	return h
}

func (h *harness) setAPI(fn http.HandlerFunc) {
	h.mu.Lock()
	h.api = fn
	h.mu.Unlock()
}

func (h *harness) setRefresh(fn http.HandlerFunc) {
	h.mu.Lock()
	h.refresh = fn
	h.mu.Unlock()
}

func (h *harness) setLogin(fn http.HandlerFunc) {
	h.mu.Lock()
	h.login = fn
	h.mu.Unlock()
}

// jwtExpiringIn returns a signed token whose exp is h.now+d.
func (h *harness) jwtExpiringIn(d time.Duration) string {
	return h.signed("u1", d)
}

// token returns a valid access token distinguished by id.
func (h *harness) token(id string) string {
	return h.signed(id, time.Hour)
}

func (h *harness) signed(id string, d time.Duration) string {
	h.t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"jti": id,
		"exp": h.now.Add(d).Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(h.t, err)
	return tok
}

func (h *harness) setTokens(access, refresh string) {
	h.t.Helper()
	ctx := context.Background()
	if access != "" {
		require.NoError(h.t, h.tokens.SetAccessToken(ctx, access))
	}
	if refresh != "" {
		require.NoError(h.t, h.tokens.SetRefreshToken(ctx, refresh))
	}
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
