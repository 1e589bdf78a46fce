// Package metrics provides Prometheus observability for the verification and
// endorsement flows.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all collectors for the service.
type Metrics struct {
	// Verification attempts by channel and outcome
	VerificationOutcome *prometheus.CounterVec

	// External call latencies by target (moltbook, linkedin, dns, email)
	ExternalLatency *prometheus.HistogramVec

	// Endorsements accepted/rejected by reason
	EndorsementOutcome *prometheus.CounterVec

	// Sessions issued by verification method
	SessionsIssued *prometheus.CounterVec

	// Rate-limit rejections by limiter
	RateLimited *prometheus.CounterVec
}

// New creates a Metrics instance with all collectors registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		VerificationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agentsid_verification_outcomes_total",
			Help: "Verification attempts by channel and outcome",
		}, []string{"channel", "outcome"}),

		ExternalLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentsid_external_call_duration_seconds",
			Help:    "Duration of external provider calls by target",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"target"}),

		EndorsementOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agentsid_endorsement_outcomes_total",
			Help: "Endorsement creation attempts by outcome",
		}, []string{"outcome"}),

		SessionsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agentsid_sessions_issued_total",
			Help: "Session tokens issued by verification method",
		}, []string{"method"}),

		RateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agentsid_rate_limited_total",
			Help: "Requests rejected by rate limiting, by limiter",
		}, []string{"limiter"}),
	}
}

// ObserveVerification records a verification attempt outcome.
func (m *Metrics) ObserveVerification(channel, outcome string) {
	if m != nil {
		m.VerificationOutcome.WithLabelValues(channel, outcome).Inc()
	}
}

// ObserveExternalLatency records the duration of an external provider call.
func (m *Metrics) ObserveExternalLatency(target string, d time.Duration) {
	if m != nil {
		m.ExternalLatency.WithLabelValues(target).Observe(d.Seconds())
	}
}

// ObserveEndorsement records an endorsement creation outcome.
func (m *Metrics) ObserveEndorsement(outcome string) {
	if m != nil {
		m.EndorsementOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveSessionIssued records an issued session by verification method.
func (m *Metrics) ObserveSessionIssued(method string) {
	if m != nil {
		m.SessionsIssued.WithLabelValues(method).Inc()
	}
}

// ObserveRateLimited records a rate-limit rejection.
func (m *Metrics) ObserveRateLimited(limiter string) {
	if m != nil {
		m.RateLimited.WithLabelValues(limiter).Inc()
	}
}
