package setup

import (
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/reference"
	usecase "github.com/LavaJover/shvark-checkout-service/internal/usecase/payment"
)

type UseCases struct {
	PaymentUsecase usecase.PaymentUsecase
}

func InitializeUseCases(deps *Dependencies) *UseCases {
	cfg := deps.Config

	paymentUsecase := usecase.NewDefaultPaymentUsecase(
		deps.Store,
		deps.Gateway,
		reference.NewUUIDGenerator(cfg.Payment.ReferencePrefix),
		deps.Hook,
		deps.Attempts,
		deps.Metrics,
		usecase.Config{
			TTL:                  cfg.Payment.TTL,
			VerifyTimeout:        cfg.Payment.VerifyTimeout,
			ConflictWait:         cfg.Payment.ConflictWait,
			ConflictPollInterval: cfg.Payment.ConflictPollInterval,
			FulfillTimeout:       cfg.Fulfillment.Timeout,
			CallbackURL:          cfg.Gateway.CallbackURL,
			ReturnURL:            cfg.Gateway.ReturnURL,
			Title:                cfg.Gateway.Title,
			Description:          cfg.Gateway.Description,
			SweepBatchSize:       cfg.Sweep.BatchSize,
			VerifyBeforeExpire:   cfg.Sweep.VerifyBeforeExpire,
			StuckAfter:           cfg.Sweep.StuckAfter,
		},
	)

	return &UseCases{
		PaymentUsecase: paymentUsecase,
	}
}
