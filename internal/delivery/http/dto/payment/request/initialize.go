package request

import "github.com/shopspring/decimal"

type InitializeRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Email       string          `json:"email"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	PhoneNumber string          `json:"phone_number,omitempty"`
	TxRef       string          `json:"tx_ref,omitempty"`
}
