package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-checkout-service/internal/usecase/dto/payment"
)

// Initiate opens a hosted checkout. The record is stored only after the
// gateway accepted the request, so a rejected or unreachable gateway leaves
// nothing behind.
func (uc *DefaultPaymentUsecase) Initiate(ctx context.Context, input *paymentdto.InitiateInput) (*paymentdto.InitiateOutput, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: empty request", domain.ErrInvalidRequest)
	}
	input.Normalize()
	if err := uc.validateStruct(input); err != nil {
		uc.recordInitiation(outcomeInvalid)
		return nil, err
	}

	ref := input.TxRef
	if ref == "" {
		ref = uc.References.NewReference()
	} else {
		existing, err := uc.Repo.Get(ctx, ref)
		switch {
		case err == nil:
			return uc.replayInitiation(existing, input)
		case !errors.Is(err, domain.ErrTransactionNotFound):
			uc.recordInitiation(outcomeStoreError)
			return nil, fmt.Errorf("lookup reference %s: %w", ref, err)
		}
	}

	payer := domain.Payer{
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.PhoneNumber,
	}

	res, err := uc.Gateway.Initialize(ctx, domain.InitializeRequest{
		Reference:   ref,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Payer:       payer,
		CallbackURL: uc.cfg.CallbackURL,
		ReturnURL:   withReference(uc.cfg.ReturnURL, ref),
		Title:       uc.cfg.Title,
		Description: uc.cfg.Description,
	})
	if err != nil {
		uc.recordInitiation(gatewayOutcome(err))
		slog.Warn("gateway initialize failed", "tx_ref", ref, "error", err.Error())
		return nil, err
	}

	now := uc.now().UTC()
	tx := &domain.Transaction{
		Reference:           ref,
		Amount:              input.Amount,
		Currency:            input.Currency,
		Payer:               payer,
		Status:              domain.StatusAwaitingPayment,
		CheckoutURL:         res.CheckoutURL,
		LastGatewayResponse: res.Raw,
		CreatedAt:           now,
		UpdatedAt:           now,
		ExpiresAt:           now.Add(uc.cfg.TTL),
	}
	if err := uc.Repo.Create(ctx, tx); err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			uc.recordInitiation(outcomeDuplicate)
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateReference, ref)
		}
		uc.recordInitiation(outcomeStoreError)
		slog.Error("checkout opened but transaction was not stored", "tx_ref", ref, "error", err.Error())
		return nil, fmt.Errorf("store transaction %s: %w", ref, err)
	}

	uc.recordInitiation(outcomeSuccess)
	slog.Info("payment initiated",
		"tx_ref", ref,
		"amount", tx.Amount.String(),
		"currency", tx.Currency,
		"expires_at", tx.ExpiresAt,
	)

	return &paymentdto.InitiateOutput{
		Reference:   ref,
		CheckoutURL: res.CheckoutURL,
	}, nil
}

// replayInitiation answers a repeated initiate carrying a caller reference
// that is already stored. Only an identical, still payable request gets the
// original checkout back.
func (uc *DefaultPaymentUsecase) replayInitiation(existing *domain.Transaction, input *paymentdto.InitiateInput) (*paymentdto.InitiateOutput, error) {
	same := existing.Amount.Equal(input.Amount) &&
		existing.Currency == input.Currency &&
		strings.EqualFold(existing.Payer.Email, input.Email)

	if !same || existing.Status != domain.StatusAwaitingPayment {
		uc.recordInitiation(outcomeDuplicate)
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrDuplicateReference, existing.Reference, existing.Status)
	}

	uc.recordInitiation(outcomeReplayed)
	slog.Info("initiate replayed", "tx_ref", existing.Reference)
	return &paymentdto.InitiateOutput{
		Reference:   existing.Reference,
		CheckoutURL: existing.CheckoutURL,
		Replayed:    true,
	}, nil
}

// withReference appends tx_ref to the configured return URL so the browser
// comes back with the reference the return page needs.
func withReference(returnURL, ref string) string {
	if returnURL == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(returnURL, "?") {
		sep = "&"
	}
	return returnURL + sep + "tx_ref=" + ref
}
