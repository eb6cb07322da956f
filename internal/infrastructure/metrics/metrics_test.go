package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPaymentMetrics_Record(t *testing.T) {
	m := NewPaymentMetrics(prometheus.NewRegistry())

	m.RecordInitiation("ok")
	m.RecordInitiation("ok")
	m.RecordVerification("webhook", "success")
	m.RecordTransition("verifying", "success")
	m.RecordAnomaly()
	m.RecordExpired()
	m.RecordFulfillment("ok")
	m.ObserveGatewayCall("verify", "ok", 120*time.Millisecond)
	m.ObserveGatewayRetry("verify")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.InitiationsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerificationsTotal.WithLabelValues("webhook", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("verifying", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitionAnomalies))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExpiredTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FulfillmentsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayRequestsTotal.WithLabelValues("verify", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayRetriesTotal.WithLabelValues("verify")))
}

func TestNewPaymentMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPaymentMetrics(prometheus.NewRegistry())
		NewPaymentMetrics(prometheus.NewRegistry())
	})
}
