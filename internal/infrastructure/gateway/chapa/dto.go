package chapa

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type customization struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type initializeRequest struct {
	Amount        string         `json:"amount"`
	Currency      string         `json:"currency"`
	Email         string         `json:"email"`
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	PhoneNumber   string         `json:"phone_number,omitempty"`
	TxRef         string         `json:"tx_ref"`
	CallbackURL   string         `json:"callback_url,omitempty"`
	ReturnURL     string         `json:"return_url,omitempty"`
	Customization *customization `json:"customization,omitempty"`
}

type initializeResponse struct {
	Message json.RawMessage `json:"message"`
	Status  string          `json:"status"`
	Data    *struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

type verifyResponse struct {
	Message json.RawMessage `json:"message"`
	Status  string          `json:"status"`
	Data    *struct {
		Status   string              `json:"status"`
		TxRef    string              `json:"tx_ref"`
		Currency string              `json:"currency"`
		Amount   decimal.NullDecimal `json:"amount"`
	} `json:"data"`
}

// errorResponse is what the gateway sends with non-2xx codes. message is a
// string for most failures and an object of field errors for validation.
type errorResponse struct {
	Message json.RawMessage `json:"message"`
	Status  string          `json:"status"`
}
