package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/medadmin/internal/client/models"
	"github.com/dmitrijs2005/medadmin/internal/client/navigation"
	"github.com/dmitrijs2005/medadmin/internal/client/session"
	"github.com/dmitrijs2005/medadmin/internal/client/transport"
	"github.com/dmitrijs2005/medadmin/internal/common"
	"github.com/dmitrijs2005/medadmin/internal/logging"
	"github.com/dmitrijs2005/medadmin/internal/metrics"
)

type Transport interface {
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
}

type Connectivity interface {
	IsOnline() bool
}

type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	User(ctx context.Context) (*models.SessionUser, error)
	SaveTokens(ctx context.Context, ts models.TokenSet) error
	DropMFAToken(ctx context.Context) error
	Clear(ctx context.Context) error
}

// OfflineService answers requests while the backend is unreachable and
// keeps what that takes.
type OfflineService interface {
	MakeRequest(ctx context.Context, method, path string, body any) (json.RawMessage, error)
	CacheResponse(ctx context.Context, path string, body json.RawMessage) error
	CacheItems(ctx context.Context, path string, body json.RawMessage) (int, error)
	SaveCredentials(ctx context.Context, email string, password []byte, user json.RawMessage) error
	VerifyCredentials(ctx context.Context, email string, password []byte) (json.RawMessage, error)
	Replay(ctx context.Context, send func(ctx context.Context, q *models.QueuedRequest) error) (int, error)
	PendingCount(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

type TenantResolver interface {
	Resolve(ctx context.Context, route string) (string, bool)
}

type Config struct {
	APIPrefix   string
	LoginPath   string
	RefreshPath string
	LoginRoute  string

	// RefreshBuffer is how close to its exp claim a token gets refreshed.
	RefreshBuffer time.Duration
	// RefreshWaitTimeout bounds the wait for somebody else's refresh.
	RefreshWaitTimeout time.Duration
	// RedirectDelay lets in-flight cleanup finish before navigating.
	RedirectDelay time.Duration
	// LoginResetDelay clears the redirect latch when the teardown happened
	// on the login route itself.
	LoginResetDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		APIPrefix:          "/api/v1",
		LoginPath:          "/auth/login",
		RefreshPath:        "/auth/refresh-token",
		LoginRoute:         "/login",
		RefreshBuffer:      120 * time.Second,
		RefreshWaitTimeout: 5 * time.Second,
		RedirectDelay:      100 * time.Millisecond,
		LoginResetDelay:    time.Second,
	}
}

// Deps are the collaborators of a Gateway. Tenants may be nil.
type Deps struct {
	Transport    Transport
	Tokens       TokenStore
	Session      *session.Manager
	Offline      OfflineService
	Connectivity Connectivity
	Tenants      TenantResolver
	Navigator    navigation.Navigator
	Metrics      *metrics.Metrics
	Logger       logging.Logger
}

type Gateway struct {
	cfg       Config
	transport Transport
	tokens    TokenStore
	session   *session.Manager
	offline   OfflineService
	conn      Connectivity
	tenants   TenantResolver
	nav       navigation.Navigator
	metrics   *metrics.Metrics
	log       logging.Logger
	now       func() time.Time

	mu         sync.Mutex
	readCtx    context.Context
	readCancel context.CancelFunc
	// closed stops new background work once Close has started.
	closed bool

	bg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

func New(cfg Config, d Deps) *Gateway {
	if d.Session == nil {
		d.Session = session.NewManager()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(nil)
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Navigator == nil {
		d.Navigator = navigation.NewHistory("/")
	}

	g := &Gateway{
		cfg:       cfg,
		transport: d.Transport,
		tokens:    d.Tokens,
		session:   d.Session,
		offline:   d.Offline,
		conn:      d.Connectivity,
		tenants:   d.Tenants,
		nav:       d.Navigator,
		metrics:   d.Metrics,
		log:       d.Logger,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	g.readCtx, g.readCancel = context.WithCancel(context.Background())
	return g
}

// WithClock replaces the time source used for token expiry checks.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	return g
}

func (g *Gateway) Session() *session.Manager {
	return g.session
}

// call is one pass through the request pipeline.
type call struct {
	method Method
	path   string
	body   any

	// retry marks the single re-issue after a reactive refresh.
	retry bool
	// online skips the connectivity check, for outbox replay.
	online bool
}

// Do issues an authenticated request and returns the response body.
func (g *Gateway) Do(ctx context.Context, method Method, path string, body any) (json.RawMessage, error) {
	return g.do(ctx, call{method: method, path: path, body: body})
}

func (g *Gateway) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return g.Do(ctx, MethodGet, path, nil)
}

func (g *Gateway) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return g.Do(ctx, MethodPost, path, body)
}

func (g *Gateway) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return g.Do(ctx, MethodPut, path, body)
}

func (g *Gateway) Patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return g.Do(ctx, MethodPatch, path, body)
}

func (g *Gateway) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return g.Do(ctx, MethodDelete, path, nil)
}

// DoWithCallback is Do for call sites that take errors through a callback:
// on failure onError receives the error and the result is nil. A nil
// onError is rejected up front, since the error would have nowhere to go;
// use Do instead.
func (g *Gateway) DoWithCallback(ctx context.Context, method Method, path string, body any, onError func(error)) json.RawMessage {
	if onError == nil {
		panic("gateway: DoWithCallback called with nil onError")
	}
	res, err := g.Do(ctx, method, path, body)
	if err != nil {
		onError(err)
		return nil
	}
	return res
}

func (g *Gateway) do(ctx context.Context, c call) (json.RawMessage, error) {
	if !c.online && g.conn != nil && !g.conn.IsOnline() {
		g.metrics.Offline(string(c.method))
		g.metrics.Request(string(c.method), metrics.OutcomeOffline)
		return g.offline.MakeRequest(ctx, string(c.method), c.path, c.body)
	}

	token, err := g.tokenForRequest(ctx)
	if err != nil {
		g.metrics.Request(string(c.method), metrics.OutcomeExpired)
		return nil, err
	}

	req, err := g.buildRequest(ctx, c.method, c.path, c.body, token)
	if err != nil {
		return nil, err
	}

	resp, err := g.dispatch(ctx, c.method, req)
	if err == nil {
		if c.method == MethodGet {
			g.cacheAsync(c.path, resp.Body)
		}
		g.metrics.Request(string(c.method), metrics.OutcomeOK)
		return resp.Body, nil
	}

	if !isAuthError(err) {
		if c.method == MethodGet && g.offline != nil && errors.Is(err, common.ErrUnavailable) {
			return g.readOffline(ctx, c, err)
		}
		g.metrics.Request(string(c.method), metrics.OutcomeError)
		return nil, err
	}
	if g.session.Redirecting() {
		g.metrics.Request(string(c.method), metrics.OutcomeRedirect)
		return nil, fmt.Errorf("%w: %w", ErrRedirectInProgress, err)
	}
	if c.retry {
		g.metrics.Request(string(c.method), metrics.OutcomeError)
		return nil, err
	}

	g.log.Debug(ctx, "auth failure, refreshing token", "method", c.method, "path", c.path, "error", err)

	if _, rerr := g.refresh(ctx, token, true); rerr != nil {
		switch {
		case errors.Is(rerr, ErrSessionExpired):
			g.metrics.Request(string(c.method), metrics.OutcomeExpired)
			return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		case errors.Is(rerr, ErrRedirectInProgress):
			g.metrics.Request(string(c.method), metrics.OutcomeRedirect)
			return nil, fmt.Errorf("%w: %w", ErrRedirectInProgress, err)
		default:
			g.metrics.Request(string(c.method), metrics.OutcomeError)
			return nil, fmt.Errorf("%w (token refresh failed: %v)", err, rerr)
		}
	}

	g.metrics.Request(string(c.method), metrics.OutcomeRetried)
	c.retry = true
	return g.do(ctx, c)
}

// readOffline answers a read the backend failed to serve from the offline
// cache. The watcher may not have noticed the outage yet. Without a cached
// copy the caller gets both errors.
func (g *Gateway) readOffline(ctx context.Context, c call, cause error) (json.RawMessage, error) {
	res, err := g.offline.MakeRequest(ctx, string(c.method), c.path, c.body)
	if err != nil {
		g.metrics.Request(string(c.method), metrics.OutcomeError)
		return nil, fmt.Errorf("%w: %w", cause, err)
	}
	g.log.Info(ctx, "backend unreachable, served cached response", "path", c.path, "error", cause)
	g.metrics.Offline(string(c.method))
	g.metrics.Request(string(c.method), metrics.OutcomeOffline)
	return res, nil
}

// dispatch sends req. Reads join the abortable read group.
func (g *Gateway) dispatch(ctx context.Context, method Method, req transport.Request) (*transport.Response, error) {
	if method != MethodGet {
		return g.transport.Do(ctx, req)
	}

	rctx, release := g.joinReads(ctx)
	defer release()

	resp, err := g.transport.Do(rctx, req)
	if err != nil && ctx.Err() == nil && rctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadsAborted, err)
	}
	return resp, err
}

func (g *Gateway) joinReads(ctx context.Context) (context.Context, func()) {
	g.mu.Lock()
	group := g.readCtx
	g.mu.Unlock()

	rctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(group, cancel)
	return rctx, func() {
		stop()
		cancel()
	}
}

// AbortReads cancels every GET in flight. Requests issued afterwards are
// not affected; writes never are.
func (g *Gateway) AbortReads() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.readCancel()
	g.readCtx, g.readCancel = context.WithCancel(context.Background())
}

func (g *Gateway) cacheAsync(path string, body json.RawMessage) {
	if g.offline == nil || len(body) == 0 {
		return
	}
	body = append(json.RawMessage(nil), body...)

	g.spawn(func() {
		ctx := context.Background()

		if err := g.offline.CacheResponse(ctx, path, body); err != nil {
			g.log.Warn(ctx, "failed to cache response", "path", path, "error", err)
			return
		}
		if _, err := g.offline.CacheItems(ctx, path, body); err != nil {
			g.log.Warn(ctx, "failed to cache list items", "path", path, "error", err)
		}
	})
}

// after runs fn once d has passed, unless the gateway is closed first.
func (g *Gateway) after(d time.Duration, fn func()) {
	g.spawn(func() {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			fn()
		case <-g.done:
		}
	})
}

// spawn runs fn on a goroutine Close waits for. After Close it does nothing
// and reports false.
func (g *Gateway) spawn(fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.bg.Add(1)
	go func() {
		defer g.bg.Done()
		fn()
	}()
	return true
}

// Close drops pending navigations, waits for background cache writes and
// cancels reads in flight.
func (g *Gateway) Close() error {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.closed = true
		g.mu.Unlock()

		close(g.done)
		g.bg.Wait()

		g.mu.Lock()
		g.readCancel()
		g.mu.Unlock()
	})
	return nil
}
