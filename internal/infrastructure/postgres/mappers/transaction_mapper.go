package mappers

import (
	"encoding/json"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
)

func ToDomainTransaction(model *models.TransactionModel) (*domain.Transaction, error) {
	amount, err := decimal.NewFromString(model.Amount)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		Reference: model.Reference,
		Amount:    amount,
		Currency:  model.Currency,
		Payer: domain.Payer{
			Email:     model.PayerEmail,
			FirstName: model.PayerFirstName,
			LastName:  model.PayerLastName,
			Phone:     model.PayerPhone,
		},
		Status:      model.Status,
		CheckoutURL: model.CheckoutURL,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		ExpiresAt:   model.ExpiresAt,
	}
	if len(model.LastGatewayResponse) > 0 {
		tx.LastGatewayResponse = json.RawMessage(model.LastGatewayResponse)
	}
	return tx, nil
}

func ToGORMTransaction(tx *domain.Transaction) *models.TransactionModel {
	model := &models.TransactionModel{
		Reference:      tx.Reference,
		Amount:         tx.Amount.StringFixed(2),
		Currency:       tx.Currency,
		PayerEmail:     tx.Payer.Email,
		PayerFirstName: tx.Payer.FirstName,
		PayerLastName:  tx.Payer.LastName,
		PayerPhone:     tx.Payer.Phone,
		Status:         tx.Status,
		CheckoutURL:    tx.CheckoutURL,
		CreatedAt:      tx.CreatedAt,
		UpdatedAt:      tx.UpdatedAt,
		ExpiresAt:      tx.ExpiresAt,
	}
	if len(tx.LastGatewayResponse) > 0 {
		model.LastGatewayResponse = []byte(tx.LastGatewayResponse)
	}
	return model
}
