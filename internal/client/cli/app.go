package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"sync/atomic"

	"github.com/dmitrijs2005/medadmin/internal/client/config"
	"github.com/dmitrijs2005/medadmin/internal/client/connectivity"
	"github.com/dmitrijs2005/medadmin/internal/client/gateway"
	"github.com/dmitrijs2005/medadmin/internal/client/models"
	"github.com/dmitrijs2005/medadmin/internal/client/navigation"
	"github.com/dmitrijs2005/medadmin/internal/client/offline"
	"github.com/dmitrijs2005/medadmin/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/medadmin/internal/client/session"
	"github.com/dmitrijs2005/medadmin/internal/client/storage"
	"github.com/dmitrijs2005/medadmin/internal/client/tenant"
	"github.com/dmitrijs2005/medadmin/internal/client/tokenstore"
	"github.com/dmitrijs2005/medadmin/internal/client/transport"
	"github.com/dmitrijs2005/medadmin/internal/logging"
	"github.com/dmitrijs2005/medadmin/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

type App struct {
	config   *config.Config
	log      logging.Logger
	db       *sql.DB
	gateway  *gateway.Gateway
	watcher  *connectivity.Watcher
	nav      *navigation.History
	tenants  *tenant.Resolver
	registry *prometheus.Registry
	reader   *bufio.Reader
	out      io.Writer
	// user is written by the REPL and read by the watcher callback.
	user     atomic.Pointer[models.SessionUser]
}

// NewApp opens the local database and wires the request gateway on top of it.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := storage.Open(ctx, c.DBPath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	tcfg := transport.DefaultConfig(c.APIBaseURL)
	tcfg.Timeout = c.RequestTimeout
	tcfg.MaxRetries = c.MaxRetries
	tcfg.HealthPath = c.HealthPath
	tcfg.OnStateChange = func(name string, to gobreaker.State) {
		m.SetBreakerState(name, transport.StateValue(to))
	}
	tc := transport.New(tcfg, log)

	watcher := connectivity.NewWatcher(tc, c.OnlineCheckInterval, log)
	nav := navigation.NewHistory(c.LoginRoute)
	tenants := tenant.NewResolver(metadata.NewSQLiteRepository(db))

	gcfg := gateway.Config{
		APIPrefix:          c.APIPrefix,
		LoginPath:          c.LoginPath,
		RefreshPath:        c.RefreshPath,
		LoginRoute:         c.LoginRoute,
		RefreshBuffer:      c.RefreshBuffer,
		RefreshWaitTimeout: c.RefreshWaitTimeout,
		RedirectDelay:      c.RedirectDelay,
		LoginResetDelay:    c.LoginResetDelay,
	}
	gw := gateway.New(gcfg, gateway.Deps{
		Transport:    tc,
		Tokens:       tokenstore.New(db),
		Session:      session.NewManager(),
		Offline:      offline.New(db, log),
		Connectivity: watcher,
		Tenants:      tenants,
		Navigator:    nav,
		Metrics:      m,
		Logger:       log,
	})

	a := &App{
		config:   c,
		log:      log,
		db:       db,
		gateway:  gw,
		watcher:  watcher,
		nav:      nav,
		tenants:  tenants,
		registry: registry,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}

	nav.OnNavigate(func(path string) {
		if path == c.LoginRoute {
			a.user.Store(nil)
		}
	})
	watcher.OnChange(a.onModeChange)

	return a, nil
}

// onModeChange flushes writes queued while offline as soon as the backend
// answers again.
func (a *App) onModeChange(mode connectivity.Mode) {
	if mode != connectivity.ModeOnline || !a.isLoggedIn() {
		return
	}
	ctx := context.Background()
	n, err := a.gateway.SyncOutbox(ctx)
	if err != nil {
		a.log.Warn(ctx, "outbox sync failed", "sent", n, "error", err)
		return
	}
	if n > 0 {
		a.log.Info(ctx, "outbox synced", "sent", n)
	}
}

func (a *App) Gateway() *gateway.Gateway {
	return a.gateway
}

// Registry exposes the collectors for the debug endpoint.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

func (a *App) isLoggedIn() bool {
	return a.user.Load() != nil
}

// Resume picks up a session left in local storage by a previous run.
func (a *App) Resume(ctx context.Context) {
	u, err := a.gateway.CurrentUser(ctx)
	if err != nil || u == nil {
		return
	}
	a.user.Store(u)
	a.nav.Navigate("/")
	a.log.Info(ctx, "resumed session", "user", u.Email)
}

// StartOnlineStatusWatcher blocks, polling the backend until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context) {
	a.watcher.Run(ctx)
}

func (a *App) Run(ctx context.Context) {
	a.Resume(ctx)
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) Close() error {
	return errors.Join(a.gateway.Close(), a.db.Close())
}
