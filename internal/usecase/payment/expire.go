package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

// ExpireStale retires one batch of open transactions whose checkout window
// has passed and returns how many were expired.
func (uc *DefaultPaymentUsecase) ExpireStale(ctx context.Context) (int, error) {
	txs, err := uc.Repo.FindExpired(ctx, uc.now(), uc.cfg.SweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("find expired transactions: %w", err)
	}

	var (
		expired int
		errs    []error
	)
	for _, tx := range txs {
		if ctx.Err() != nil {
			break
		}

		current := tx
		// a payment completed right before the deadline must not be lost
		if uc.cfg.VerifyBeforeExpire && tx.Status != domain.StatusInitiated {
			settled, err := uc.Verify(ctx, tx.Reference, domain.TriggerExpirySweep)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			current = settled
		}

		switch current.Status {
		case domain.StatusInitiated, domain.StatusAwaitingPayment, domain.StatusVerificationFailed:
		default:
			continue
		}

		err := uc.transition(ctx, current.Reference, current.Status, domain.StatusExpired, nil)
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("expire %s: %w", current.Reference, err))
			continue
		}

		expired++
		uc.recordExpired()
		slog.Info("transaction expired", "tx_ref", current.Reference, "expires_at", current.ExpiresAt)
	}

	return expired, errors.Join(errs...)
}

// RecoverStuck releases records left in verifying by an owner that died
// before settling them.
func (uc *DefaultPaymentUsecase) RecoverStuck(ctx context.Context) (int, error) {
	cutoff := uc.now().Add(-uc.cfg.StuckAfter)
	txs, err := uc.Repo.FindStuck(ctx, cutoff, uc.cfg.SweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("find stuck transactions: %w", err)
	}

	var (
		recovered int
		errs      []error
	)
	for _, tx := range txs {
		err := uc.transition(ctx, tx.Reference, domain.StatusVerifying, domain.StatusVerificationFailed, nil)
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("recover %s: %w", tx.Reference, err))
			continue
		}
		recovered++
		slog.Warn("stuck verification released", "tx_ref", tx.Reference, "updated_at", tx.UpdatedAt)
	}

	return recovered, errors.Join(errs...)
}
