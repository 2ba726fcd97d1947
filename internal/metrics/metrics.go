// Package metrics holds the prometheus collectors of the medadmin client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "medadmin"

// Refresh results.
const (
	RefreshSuccess = "success"
	RefreshFailed  = "failed"
	RefreshWaited  = "waited"
	RefreshSkipped = "skipped"
)

// Request outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRetried  = "retried"
	OutcomeOffline  = "offline"
	OutcomeExpired  = "session_expired"
	OutcomeRedirect = "redirect_in_progress"
)

type Metrics struct {
	RefreshTotal         *prometheus.CounterVec
	RedirectTotal        prometheus.Counter
	OfflineRequestsTotal *prometheus.CounterVec
	RequestsTotal        *prometheus.CounterVec
	BreakerState         *prometheus.GaugeVec
}

// New registers the collectors on reg. A nil reg leaves them unregistered,
// which is what tests and embedders without a /metrics endpoint want.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		RefreshTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Token refresh attempts by result.",
		}, []string{"result"}),
		RedirectTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirect_total",
			Help:      "Session teardowns that redirected to the login route.",
		}),
		OfflineRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offline_requests_total",
			Help:      "Requests answered by the offline service.",
		}, []string{"method"}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Gateway requests by method and outcome.",
		}, []string{"method", "outcome"}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Current state of the circuit breaker (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),
	}
}

func (m *Metrics) Refresh(result string) {
	m.RefreshTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Redirect() {
	m.RedirectTotal.Inc()
}

func (m *Metrics) Offline(method string) {
	m.OfflineRequestsTotal.WithLabelValues(method).Inc()
}

func (m *Metrics) Request(method, outcome string) {
	m.RequestsTotal.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) SetBreakerState(name string, v float64) {
	m.BreakerState.WithLabelValues(name).Set(v)
}
