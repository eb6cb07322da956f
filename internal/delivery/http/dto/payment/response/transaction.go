package response

import (
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

type TransactionResponse struct {
	TxRef       string    `json:"tx_ref"`
	Status      string    `json:"status"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	CheckoutURL string    `json:"checkout_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func FromTransaction(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TxRef:       tx.Reference,
		Status:      string(tx.Status),
		Amount:      tx.Amount.StringFixed(2),
		Currency:    tx.Currency,
		CheckoutURL: tx.CheckoutURL,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
		ExpiresAt:   tx.ExpiresAt,
	}
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
