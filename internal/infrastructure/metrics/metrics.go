package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentMetrics содержит все метрики платежного цикла
type PaymentMetrics struct {
	InitiationsTotal     *prometheus.CounterVec
	VerificationsTotal   *prometheus.CounterVec
	TransitionsTotal     *prometheus.CounterVec
	TransitionAnomalies  prometheus.Counter
	ExpiredTotal         prometheus.Counter
	FulfillmentsTotal    *prometheus.CounterVec
	GatewayRequestsTotal *prometheus.CounterVec
	GatewayDuration      *prometheus.HistogramVec
	GatewayRetriesTotal  *prometheus.CounterVec
}

// NewPaymentMetrics registers the collectors on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	factory := promauto.With(reg)

	return &PaymentMetrics{
		InitiationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_initiations_total",
				Help: "Payment initiations by outcome",
			},
			[]string{"outcome"},
		),

		VerificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_verifications_total",
				Help: "Verification requests by trigger and resulting status",
			},
			[]string{"trigger", "outcome"},
		),

		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_transitions_total",
				Help: "Committed status transitions",
			},
			[]string{"from", "to"},
		),

		TransitionAnomalies: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "checkout_transition_anomalies_total",
				Help: "Final writes that lost ownership of a verifying transaction",
			},
		),

		ExpiredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "checkout_expired_total",
				Help: "Transactions retired by the expiry sweep",
			},
		),

		FulfillmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_fulfillments_total",
				Help: "Fulfillment hook invocations by outcome",
			},
			[]string{"outcome"},
		),

		GatewayRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_gateway_requests_total",
				Help: "Gateway calls by operation and outcome, retries included",
			},
			[]string{"operation", "outcome"},
		),

		GatewayDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_gateway_request_duration_seconds",
				Help:    "Latency of single gateway HTTP attempts",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
			},
			[]string{"operation"},
		),

		GatewayRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_gateway_retries_total",
				Help: "Gateway attempts that were retried",
			},
			[]string{"operation"},
		),
	}
}

func (m *PaymentMetrics) RecordInitiation(outcome string) {
	m.InitiationsTotal.WithLabelValues(outcome).Inc()
}

func (m *PaymentMetrics) RecordVerification(trigger, outcome string) {
	m.VerificationsTotal.WithLabelValues(trigger, outcome).Inc()
}

func (m *PaymentMetrics) RecordTransition(from, to string) {
	m.TransitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *PaymentMetrics) RecordAnomaly() {
	m.TransitionAnomalies.Inc()
}

func (m *PaymentMetrics) RecordExpired() {
	m.ExpiredTotal.Inc()
}

func (m *PaymentMetrics) RecordFulfillment(outcome string) {
	m.FulfillmentsTotal.WithLabelValues(outcome).Inc()
}

// ObserveGatewayCall satisfies the gateway client's observer.
func (m *PaymentMetrics) ObserveGatewayCall(operation, outcome string, d time.Duration) {
	m.GatewayRequestsTotal.WithLabelValues(operation, outcome).Inc()
	m.GatewayDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *PaymentMetrics) ObserveGatewayRetry(operation string) {
	m.GatewayRetriesTotal.WithLabelValues(operation).Inc()
}
