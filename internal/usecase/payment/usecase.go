package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/metrics"
	paymentdto "github.com/LavaJover/shvark-checkout-service/internal/usecase/dto/payment"
	"github.com/go-playground/validator/v10"
)

type PaymentUsecase interface {
	Initiate(ctx context.Context, input *paymentdto.InitiateInput) (*paymentdto.InitiateOutput, error)
	// Verify is the single reconciliation entry point shared by the webhook,
	// the return redirect, manual polls and the expiry sweep.
	Verify(ctx context.Context, reference string, trigger domain.Trigger) (*domain.Transaction, error)

	ExpireStale(ctx context.Context) (int, error)
	RecoverStuck(ctx context.Context) (int, error)
}

type Config struct {
	TTL                  time.Duration
	VerifyTimeout        time.Duration
	ConflictWait         time.Duration
	ConflictPollInterval time.Duration
	FulfillTimeout       time.Duration

	CallbackURL string
	ReturnURL   string
	Title       string
	Description string

	SweepBatchSize     int
	VerifyBeforeExpire bool
	StuckAfter         time.Duration
}

func (c *Config) applyDefaults() {
	if c.TTL <= 0 {
		c.TTL = 30 * time.Minute
	}
	if c.VerifyTimeout <= 0 {
		c.VerifyTimeout = 45 * time.Second
	}
	if c.ConflictWait < 0 {
		c.ConflictWait = 0
	}
	if c.ConflictPollInterval <= 0 {
		c.ConflictPollInterval = 100 * time.Millisecond
	}
	if c.FulfillTimeout <= 0 {
		c.FulfillTimeout = 15 * time.Second
	}
	if c.SweepBatchSize <= 0 {
		c.SweepBatchSize = 100
	}
	// stuck recovery must never take a record from a live owner
	if c.StuckAfter <= c.VerifyTimeout {
		slog.Warn("stuck_after does not exceed verify_timeout, raising it",
			"stuck_after", c.StuckAfter, "verify_timeout", c.VerifyTimeout)
		c.StuckAfter = 2 * c.VerifyTimeout
	}
}

type DefaultPaymentUsecase struct {
	Repo       domain.TransactionRepository
	Gateway    domain.GatewayClient
	References domain.ReferenceGenerator
	Hook       domain.FulfillmentHook
	Attempts   domain.AttemptLogger
	Metrics    *metrics.PaymentMetrics

	cfg      Config
	validate *validator.Validate
	now      func() time.Time
}

func NewDefaultPaymentUsecase(
	repo domain.TransactionRepository,
	gateway domain.GatewayClient,
	references domain.ReferenceGenerator,
	hook domain.FulfillmentHook,
	attempts domain.AttemptLogger,
	paymentMetrics *metrics.PaymentMetrics,
	cfg Config) *DefaultPaymentUsecase {

	cfg.applyDefaults()

	return &DefaultPaymentUsecase{
		Repo:       repo,
		Gateway:    gateway,
		References: references,
		Hook:       hook,
		Attempts:   attempts,
		Metrics:    paymentMetrics,
		cfg:        cfg,
		validate:   newValidator(),
		now:        time.Now,
	}
}
