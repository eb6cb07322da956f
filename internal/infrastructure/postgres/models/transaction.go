package models

import (
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

type TransactionModel struct {
	Reference           string `gorm:"primaryKey;size:64"`
	Amount              string `gorm:"type:numeric(18,2);not null"`
	Currency            string `gorm:"size:3;not null"`
	PayerEmail          string `gorm:"not null"`
	PayerFirstName      string `gorm:"not null"`
	PayerLastName       string `gorm:"not null"`
	PayerPhone          string
	Status              domain.TransactionStatus `gorm:"size:32;not null;index:idx_tx_status_expires;index:idx_tx_status_updated"`
	CheckoutURL         string
	LastGatewayResponse []byte    `gorm:"type:jsonb"`
	CreatedAt           time.Time `gorm:"index:idx_tx_created_at"`
	UpdatedAt           time.Time `gorm:"index:idx_tx_status_updated"`
	ExpiresAt           time.Time `gorm:"index:idx_tx_status_expires"`
}

func (TransactionModel) TableName() string {
	return "transactions"
}
