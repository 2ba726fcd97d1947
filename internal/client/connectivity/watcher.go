// Package connectivity keeps track of whether the backend is reachable.
package connectivity

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/medadmin/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Watcher starts online and flips mode according to periodic pings.
type Watcher struct {
	pinger      Pinger
	interval    time.Duration
	pingTimeout time.Duration
	log         logging.Logger

	offline  atomic.Bool
	onChange func(Mode)
}

func NewWatcher(p Pinger, interval time.Duration, log logging.Logger) *Watcher {
	if log == nil {
		log = logging.Discard()
	}
	return &Watcher{pinger: p, interval: interval, pingTimeout: 3 * time.Second, log: log}
}

// OnChange registers fn to run after every mode transition. Call it before
// Run.
func (w *Watcher) OnChange(fn func(Mode)) {
	w.onChange = fn
}

func (w *Watcher) IsOnline() bool {
	return !w.offline.Load()
}

func (w *Watcher) Mode() Mode {
	if w.IsOnline() {
		return ModeOnline
	}
	return ModeOffline
}

// SetOnline forces the mode. The next ping may flip it again.
func (w *Watcher) SetOnline(ctx context.Context, online bool) {
	if w.offline.Swap(!online) == !online {
		return
	}
	mode := w.Mode()
	w.log.Info(ctx, "switched mode", "mode", string(mode))
	if w.onChange != nil {
		w.onChange(mode)
	}
}

// Check pings once and updates the mode.
func (w *Watcher) Check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, w.pingTimeout)
	err := w.pinger.Ping(pctx)
	cancel()

	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		w.log.Debug(ctx, "health check failed", "error", err)
	}
	w.SetOnline(ctx, err == nil)
}

// Run pings every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
