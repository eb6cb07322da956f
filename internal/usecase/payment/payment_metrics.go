package usecase

import (
	"errors"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

const (
	outcomeSuccess     = "success"
	outcomeReplayed    = "replayed"
	outcomeInvalid     = "invalid"
	outcomeDuplicate   = "duplicate"
	outcomeRejected    = "rejected"
	outcomeUnavailable = "unavailable"
	outcomeError       = "error"
	outcomeStoreError  = "store_error"
)

func gatewayOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrGatewayRejected):
		return outcomeRejected
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return outcomeUnavailable
	default:
		return outcomeError
	}
}

// Все хелперы безопасны при Metrics == nil

func (uc *DefaultPaymentUsecase) recordInitiation(outcome string) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordInitiation(outcome)
}

func (uc *DefaultPaymentUsecase) recordVerification(trigger domain.Trigger, status domain.TransactionStatus) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordVerification(string(trigger), string(status))
}

func (uc *DefaultPaymentUsecase) recordTransition(from, to domain.TransactionStatus) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordTransition(string(from), string(to))
}

func (uc *DefaultPaymentUsecase) recordAnomaly() {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordAnomaly()
}

func (uc *DefaultPaymentUsecase) recordExpired() {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordExpired()
}

func (uc *DefaultPaymentUsecase) recordFulfillment(outcome string) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordFulfillment(outcome)
}
