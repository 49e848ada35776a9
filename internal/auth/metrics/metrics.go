// Package metrics holds the Prometheus collectors for the auth service.
//
// All methods are safe on a nil *Metrics so services can run without a
// registry in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "habitauth"

// Outcome labels.
const (
	OutcomeSuccess        = "success"
	OutcomeFailure        = "failure"
	OutcomeMalformed      = "malformed"
	OutcomeNotFound       = "not_found"
	OutcomeExpiredRevoked = "expired_or_revoked"
	OutcomeRateLimited    = "rate_limited"
	OutcomeDuplicate      = "duplicate"
)

type Metrics struct {
	registry *prometheus.Registry

	logins        *prometheus.CounterVec
	registrations *prometheus.CounterVec
	rotations     *prometheus.CounterVec
	replays       prometheus.Counter
	revocations   prometheus.Counter
	issueDuration prometheus.Histogram
}

// New registers the auth collectors plus the Go and process collectors on
// a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_rotations_total",
			Help:      "Refresh token rotations by outcome.",
		}, []string{"outcome"}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_replay_detected_total",
			Help:      "Rotated refresh tokens presented again inside the replay window.",
		}),
		revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_tokens_revoked_total",
			Help:      "Refresh records revoked by logout, reset or replay handling.",
		}),
		issueDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_issue_duration_seconds",
			Help:      "Time spent signing and persisting a token pair.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25},
		}),
	}

	reg.MustRegister(
		m.logins,
		m.registrations,
		m.rotations,
		m.replays,
		m.revocations,
		m.issueDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the private registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

func (m *Metrics) Login(outcome string) {
	if m != nil {
		m.logins.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Registration(outcome string) {
	if m != nil {
		m.registrations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Rotation(outcome string) {
	if m != nil {
		m.rotations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ReplayDetected() {
	if m != nil {
		m.replays.Inc()
	}
}

func (m *Metrics) Revoked(n int64) {
	if m != nil && n > 0 {
		m.revocations.Add(float64(n))
	}
}

func (m *Metrics) ObserveIssue(d time.Duration) {
	if m != nil {
		m.issueDuration.Observe(d.Seconds())
	}
}
