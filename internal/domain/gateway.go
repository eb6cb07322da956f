package domain

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

type RemoteStatus string

const (
	RemoteStatusSuccess RemoteStatus = "success"
	RemoteStatusFailed  RemoteStatus = "failed"
	RemoteStatusPending RemoteStatus = "pending"
	RemoteStatusUnknown RemoteStatus = "unknown"
)

type InitializeRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Payer       Payer
	CallbackURL string
	ReturnURL   string
	Title       string
	Description string
}

type InitializeResult struct {
	CheckoutURL string
	Raw         json.RawMessage
}

type VerifyResult struct {
	Status   RemoteStatus
	Amount   decimal.Decimal
	Currency string
	Raw      json.RawMessage
}

type GatewayClient interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

type ReferenceGenerator interface {
	NewReference() string
}
