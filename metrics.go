package assetcore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for session operations. A
// nil *Metrics is valid and records nothing.
type Metrics struct {
	loginOutcomes   *prometheus.CounterVec
	refreshOutcomes *prometheus.CounterVec
	reuseDetections prometheus.Counter
	tenantSwitches  prometheus.Counter
	logouts         prometheus.Counter
	resolveLatency  prometheus.Histogram
}

// NewMetrics registers collectors on reg. A nil reg falls back to the
// default registerer; a disabled config yields a nil Metrics.
func NewMetrics(cfg MetricsConfig, reg prometheus.Registerer) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "assetcore"
	}

	m := &Metrics{
		loginOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "refresh_attempts_total",
			Help:      "Refresh attempts by outcome.",
		}, []string{"outcome"}),
		reuseDetections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "refresh_reuse_detections_total",
			Help:      "Refresh token reuse detections.",
		}),
		tenantSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "tenant_switches_total",
			Help:      "Successful active-tenant switches.",
		}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "logouts_total",
			Help:      "Logout calls.",
		}),
		resolveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "resolve_context_seconds",
			Help:      "ResolveContext latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.loginOutcomes,
		m.refreshOutcomes,
		m.reuseDetections,
		m.tenantSwitches,
		m.logouts,
		m.resolveLatency,
	)

	return m
}

func (m *Metrics) loginOutcome(outcome string) {
	if m == nil {
		return
	}
	m.loginOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) refreshOutcome(outcome string) {
	if m == nil {
		return
	}
	m.refreshOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) reuseDetected() {
	if m == nil {
		return
	}
	m.reuseDetections.Inc()
}

func (m *Metrics) tenantSwitch() {
	if m == nil {
		return
	}
	m.tenantSwitches.Inc()
}

func (m *Metrics) logout() {
	if m == nil {
		return
	}
	m.logouts.Inc()
}

func (m *Metrics) observeResolve(d time.Duration) {
	if m == nil {
		return
	}
	m.resolveLatency.Observe(d.Seconds())
}
