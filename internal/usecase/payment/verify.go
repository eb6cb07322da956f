package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

func (uc *DefaultPaymentUsecase) Verify(ctx context.Context, reference string, trigger domain.Trigger) (*domain.Transaction, error) {
	tx, err := uc.load(ctx, reference)
	if err != nil {
		return nil, err
	}

	switch {
	case tx.Status.IsTerminal():
		uc.recordVerification(trigger, tx.Status)
		return tx, nil
	case tx.Status == domain.StatusInitiated:
		return tx, nil
	case tx.Status == domain.StatusVerifying:
		return uc.awaitSettled(ctx, reference, trigger)
	}

	// Claim, gateway call and final write survive the caller going away:
	// once verifying is written this call owns the record and must settle it.
	workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.VerifyTimeout)
	defer cancel()

	if err := uc.transition(workCtx, reference, tx.Status, domain.StatusVerifying, nil); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return uc.awaitSettled(ctx, reference, trigger)
		}
		return nil, fmt.Errorf("claim verification of %s: %w", reference, err)
	}
	tx.Status = domain.StatusVerifying

	return uc.completeVerification(workCtx, tx, trigger)
}

// completeVerification asks the gateway and moves the owned record out of
// verifying. Every path ends in a write attempt.
func (uc *DefaultPaymentUsecase) completeVerification(ctx context.Context, tx *domain.Transaction, trigger domain.Trigger) (*domain.Transaction, error) {
	result, gwErr := uc.Gateway.Verify(ctx, tx.Reference)
	next, remote, reason := decideOutcome(tx, result, gwErr)

	var raw json.RawMessage
	if result != nil {
		raw = result.Raw
	}

	writeErr := uc.transition(ctx, tx.Reference, domain.StatusVerifying, next, raw)
	uc.logAttempt(ctx, tx.Reference, trigger, remote, next, reason, raw, writeErr)

	if writeErr != nil {
		if errors.Is(writeErr, domain.ErrConflict) {
			// nobody else may write a verifying record we own
			uc.recordAnomaly()
			slog.Error("lost ownership of verifying transaction",
				"tx_ref", tx.Reference,
				"trigger", trigger,
				"intended", next,
			)
			return uc.load(ctx, tx.Reference)
		}
		slog.Error("failed to settle verification, left for stuck recovery",
			"tx_ref", tx.Reference, "intended", next, "error", writeErr.Error())
		return nil, fmt.Errorf("settle verification of %s: %w", tx.Reference, writeErr)
	}

	uc.recordVerification(trigger, next)

	settled := *tx
	settled.Status = next
	settled.UpdatedAt = uc.now().UTC()
	if raw != nil {
		settled.LastGatewayResponse = raw
	}

	switch next {
	case domain.StatusSuccess:
		slog.Info("payment confirmed", "tx_ref", tx.Reference, "trigger", trigger)
		uc.fulfill(ctx, &settled, trigger)
	case domain.StatusVerificationFailed:
		slog.Warn("verification failed, needs reconciliation",
			"tx_ref", tx.Reference, "trigger", trigger, "reason", reason)
	default:
		slog.Info("verification settled", "tx_ref", tx.Reference, "trigger", trigger, "status", next)
	}

	return &settled, nil
}

// decideOutcome maps a gateway answer onto the next status. A success that
// disagrees with the stored amount or currency is not trusted.
func decideOutcome(tx *domain.Transaction, result *domain.VerifyResult, err error) (domain.TransactionStatus, domain.RemoteStatus, string) {
	if err != nil {
		return domain.StatusVerificationFailed, "", err.Error()
	}
	if result == nil {
		return domain.StatusVerificationFailed, "", "empty gateway response"
	}

	switch result.Status {
	case domain.RemoteStatusSuccess:
		if !result.Amount.Equal(tx.Amount) || !strings.EqualFold(result.Currency, tx.Currency) {
			return domain.StatusVerificationFailed, result.Status, fmt.Sprintf(
				"paid %s %s, expected %s %s",
				result.Amount.String(), result.Currency, tx.Amount.String(), tx.Currency,
			)
		}
		return domain.StatusSuccess, result.Status, ""
	case domain.RemoteStatusFailed:
		return domain.StatusFailed, result.Status, ""
	case domain.RemoteStatusPending:
		return domain.StatusAwaitingPayment, result.Status, ""
	default:
		return domain.StatusVerificationFailed, result.Status, "unrecognized remote status"
	}
}

// awaitSettled is the path of a caller that lost the claim: it does no
// gateway work and waits for the owner's result instead.
func (uc *DefaultPaymentUsecase) awaitSettled(ctx context.Context, reference string, trigger domain.Trigger) (*domain.Transaction, error) {
	deadline := time.NewTimer(uc.cfg.ConflictWait)
	defer deadline.Stop()
	ticker := time.NewTicker(uc.cfg.ConflictPollInterval)
	defer ticker.Stop()

	for {
		tx, err := uc.load(ctx, reference)
		if err != nil {
			return nil, err
		}
		if tx.Status != domain.StatusVerifying {
			uc.recordVerification(trigger, tx.Status)
			return tx, nil
		}

		select {
		case <-ctx.Done():
			return tx, nil
		case <-deadline.C:
			uc.recordVerification(trigger, tx.Status)
			return tx, nil
		case <-ticker.C:
		}
	}
}

// transition checks the edge against the lifecycle before handing the
// compare-and-set to the store.
func (uc *DefaultPaymentUsecase) transition(ctx context.Context, reference string, from, to domain.TransactionStatus, raw json.RawMessage) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	if err := uc.Repo.Transition(ctx, reference, from, to, raw); err != nil {
		return err
	}
	uc.recordTransition(from, to)
	return nil
}

func (uc *DefaultPaymentUsecase) load(ctx context.Context, reference string) (*domain.Transaction, error) {
	tx, err := uc.Repo.Get(ctx, reference)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownReference, reference)
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction %s: %w", reference, err)
	}
	return tx, nil
}

const auditTimeout = 5 * time.Second

// fulfill runs only for the call that won verifying -> success. The hook gets
// its own budget: the gateway retries may have used up most of ctx.
// A failure is written to the attempt log with StageFulfillment so the
// payment can be handed over again by reconciliation.
func (uc *DefaultPaymentUsecase) fulfill(ctx context.Context, tx *domain.Transaction, trigger domain.Trigger) {
	if uc.Hook == nil {
		return
	}

	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.FulfillTimeout)
	defer cancel()

	err := uc.Hook.OnPaymentSuccess(hookCtx, tx)
	if err == nil {
		uc.recordFulfillment(outcomeSuccess)
		return
	}

	uc.recordFulfillment(outcomeError)
	slog.Error("fulfillment hook failed, needs reconciliation", "tx_ref", tx.Reference, "error", err.Error())

	// hookCtx may be the thing that failed
	auditCtx, cancelAudit := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancelAudit()
	uc.writeAttempt(auditCtx, domain.VerificationAttempt{
		Reference:    tx.Reference,
		Stage:        domain.StageFulfillment,
		Trigger:      trigger,
		RemoteStatus: domain.RemoteStatusSuccess,
		Outcome:      tx.Status,
		Error:        err.Error(),
		At:           uc.now().UTC(),
	})
}

func (uc *DefaultPaymentUsecase) logAttempt(
	ctx context.Context,
	reference string,
	trigger domain.Trigger,
	remote domain.RemoteStatus,
	outcome domain.TransactionStatus,
	reason string,
	raw json.RawMessage,
	writeErr error,
) {
	if uc.Attempts == nil {
		return
	}
	if writeErr != nil {
		reason = strings.TrimPrefix(reason+"; store: "+writeErr.Error(), "; ")
	}
	uc.writeAttempt(ctx, domain.VerificationAttempt{
		Reference:    reference,
		Stage:        domain.StageVerify,
		Trigger:      trigger,
		RemoteStatus: remote,
		Outcome:      outcome,
		Error:        reason,
		RawResponse:  raw,
		At:           uc.now().UTC(),
	})
}

func (uc *DefaultPaymentUsecase) writeAttempt(ctx context.Context, attempt domain.VerificationAttempt) {
	if uc.Attempts == nil {
		return
	}
	if err := uc.Attempts.LogAttempt(ctx, attempt); err != nil {
		slog.Warn("failed to record verification attempt", "tx_ref", attempt.Reference, "stage", attempt.Stage, "error", err.Error())
	}
}
