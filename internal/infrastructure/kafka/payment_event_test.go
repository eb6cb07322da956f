package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePort struct {
	topic string
	msgs  []domain.Message
	err   error
}

func (c *capturePort) Publish(_ context.Context, topic string, msgs ...domain.Message) error {
	c.topic = topic
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

func TestPaymentEventPublisher_Publish(t *testing.T) {
	port := &capturePort{}
	pub := NewPaymentEventPublisher(port, "payment-events")
	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	event := NewPaymentSucceededEvent("evt1", &domain.Transaction{
		Reference: "tkt-1",
		Amount:    decimal.NewFromInt(2600),
		Currency:  "ETB",
		Payer:     domain.Payer{Email: "a@b.com"},
		Status:    domain.StatusSuccess,
	}, at)

	require.NoError(t, pub.PublishPaymentEvent(context.Background(), event))

	assert.Equal(t, "payment-events", port.topic)
	require.Len(t, port.msgs, 1)
	assert.Equal(t, "tkt-1", string(port.msgs[0].Key))

	var decoded PaymentEvent
	require.NoError(t, json.Unmarshal(port.msgs[0].Value, &decoded))
	assert.Equal(t, EventPaymentSucceeded, decoded.Type)
	assert.Equal(t, "2600.00", decoded.Amount)
	assert.Equal(t, "success", decoded.Status)
	assert.True(t, at.Equal(decoded.OccurredAt))
}

func TestPaymentEventPublisher_PropagatesError(t *testing.T) {
	port := &capturePort{err: errors.New("broker down")}
	pub := NewPaymentEventPublisher(port, "payment-events")

	err := pub.PublishPaymentEvent(context.Background(), PaymentEvent{TxRef: "tkt-1"})
	assert.EqualError(t, err, "broker down")
}
