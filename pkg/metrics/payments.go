package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "escrowdesk"

// Metrics records payment submissions, payout actions and upstream latency.
type Metrics struct {
	submissions   *prometheus.CounterVec
	payoutActions *prometheus.CounterVec
	backend       *prometheus.HistogramVec
}

// New registers the escrowdesk metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_submissions_total",
		Help:      "Payment submissions by method and outcome.",
	}, []string{"method", "outcome"})
	payoutActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payout_actions_total",
		Help:      "Admin payout actions by action and outcome.",
	}, []string{"action", "outcome"})
	backend := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Latency of marketplace backend requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "status"})
	reg.MustRegister(submissions, payoutActions, backend)
	return &Metrics{
		submissions:   submissions,
		payoutActions: payoutActions,
		backend:       backend,
	}
}

// IncSubmission counts one payment submission.
func (m *Metrics) IncSubmission(method, outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}

// IncPayoutAction counts one admin payout action.
func (m *Metrics) IncPayoutAction(action, outcome string) {
	if m == nil || m.payoutActions == nil {
		return
	}
	m.payoutActions.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

// ObserveBackend matches marketplace.Observer.
func (m *Metrics) ObserveBackend(endpoint string, statusCode int, elapsed time.Duration) {
	if m == nil || m.backend == nil {
		return
	}
	m.backend.WithLabelValues(normalizeLabel(endpoint), statusClass(statusCode)).Observe(elapsed.Seconds())
}

func statusClass(code int) string {
	if code <= 0 {
		return "transport_error"
	}
	return strconv.Itoa(code/100) + "xx"
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
