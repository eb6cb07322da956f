package publisher

import (
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

const EventPaymentSucceeded = "payment.succeeded"

type PaymentEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	TxRef      string    `json:"tx_ref"`
	Status     string    `json:"status"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	PayerEmail string    `json:"payer_email"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewPaymentSucceededEvent(eventID string, tx *domain.Transaction, at time.Time) PaymentEvent {
	return PaymentEvent{
		EventID:    eventID,
		Type:       EventPaymentSucceeded,
		TxRef:      tx.Reference,
		Status:     string(tx.Status),
		Amount:     tx.Amount.StringFixed(2),
		Currency:   tx.Currency,
		PayerEmail: tx.Payer.Email,
		OccurredAt: at,
	}
}

// VerifyRequest is the body of a message on the verify-requests topic.
type VerifyRequest struct {
	TxRef string `json:"tx_ref"`
}
