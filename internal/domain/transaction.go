package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusInitiated          TransactionStatus = "initiated"
	StatusAwaitingPayment    TransactionStatus = "awaiting_payment"
	StatusVerifying          TransactionStatus = "verifying"
	StatusSuccess            TransactionStatus = "success"
	StatusFailed             TransactionStatus = "failed"
	StatusVerificationFailed TransactionStatus = "verification_failed"
	StatusExpired            TransactionStatus = "expired"
)

// allowedTransitions lists every legal edge of the lifecycle.
// Nothing leaves success, failed or expired.
var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	StatusInitiated:          {StatusAwaitingPayment, StatusExpired},
	StatusAwaitingPayment:    {StatusVerifying, StatusExpired},
	StatusVerifying:          {StatusSuccess, StatusFailed, StatusAwaitingPayment, StatusVerificationFailed},
	StatusVerificationFailed: {StatusVerifying, StatusExpired},
}

func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusExpired:
		return true
	}
	return false
}

func (s TransactionStatus) IsValid() bool {
	switch s {
	case StatusInitiated, StatusAwaitingPayment, StatusVerifying, StatusSuccess,
		StatusFailed, StatusVerificationFailed, StatusExpired:
		return true
	}
	return false
}

// Rank places the status in the lifecycle partial order. awaiting_payment,
// verifying and verification_failed share a rank: moving between them is the
// verification loop, not a regression.
func (s TransactionStatus) Rank() int {
	switch s {
	case StatusInitiated:
		return 0
	case StatusAwaitingPayment, StatusVerifying, StatusVerificationFailed:
		return 1
	case StatusSuccess, StatusFailed, StatusExpired:
		return 2
	}
	return -1
}

func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// OpenStatuses are the statuses the expiry sweep may retire: every
// non-terminal status except verifying, which has an owner.
func OpenStatuses() []TransactionStatus {
	return []TransactionStatus{StatusInitiated, StatusAwaitingPayment, StatusVerificationFailed}
}

type Payer struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

type Transaction struct {
	Reference           string
	Amount              decimal.Decimal
	Currency            string
	Payer               Payer
	Status              TransactionStatus
	CheckoutURL         string
	LastGatewayResponse json.RawMessage
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ExpiresAt           time.Time
}

func (t *Transaction) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Trigger names who asked for a verification.
type Trigger string

const (
	TriggerWebhook        Trigger = "webhook"
	TriggerReturnRedirect Trigger = "return_redirect"
	TriggerManualPoll     Trigger = "manual_poll"
	TriggerExpirySweep    Trigger = "expiry_sweep"
)
