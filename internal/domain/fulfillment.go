package domain

import (
	"context"
	"encoding/json"
	"time"
)

// FulfillmentHook is told once, and only once, that a transaction was paid.
type FulfillmentHook interface {
	OnPaymentSuccess(ctx context.Context, tx *Transaction) error
}

// AttemptStage tells which step of a verification an audit row describes.
type AttemptStage string

const (
	StageVerify      AttemptStage = "verify"
	StageFulfillment AttemptStage = "fulfillment"
)

type VerificationAttempt struct {
	Reference    string
	Stage        AttemptStage
	Trigger      Trigger
	RemoteStatus RemoteStatus
	Outcome      TransactionStatus
	Error        string
	RawResponse  json.RawMessage
	At           time.Time
}

type AttemptLogger interface {
	LogAttempt(ctx context.Context, attempt VerificationAttempt) error
}
