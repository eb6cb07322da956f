package paymentdto

import (
	"strings"

	"github.com/shopspring/decimal"
)

type InitiateInput struct {
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Currency    string          `json:"currency" validate:"required,iso4217"`
	Email       string          `json:"email" validate:"required,email"`
	FirstName   string          `json:"first_name" validate:"required,max=100"`
	LastName    string          `json:"last_name" validate:"required,max=100"`
	PhoneNumber string          `json:"phone_number" validate:"omitempty,max=20"`
	// TxRef is the caller's own idempotency key; empty means mint one.
	TxRef string `json:"tx_ref" validate:"omitempty,txref"`
}

// Normalize trims the free-form fields and upper-cases the currency code.
func (in *InitiateInput) Normalize() {
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.TxRef = strings.TrimSpace(in.TxRef)
}
