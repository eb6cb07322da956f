package background

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	publisher "github.com/LavaJover/shvark-checkout-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/reference"
	usecase "github.com/LavaJover/shvark-checkout-service/internal/usecase/payment"
)

const healthProbeInterval = 10 * time.Second

// Prober refreshes a health status, see grpcapi.HealthHandler.
type Prober interface {
	Probe(ctx context.Context) error
}

type Config struct {
	SweepInterval       time.Duration
	VerifyRequestsTopic string
	GroupID             string
}

type BackgroundTasks struct {
	PaymentUsecase usecase.PaymentUsecase
	Subscriber     domain.SubscriberPort
	Health         Prober

	cfg Config
	wg  sync.WaitGroup
}

// NewBackgroundTasks accepts a nil subscriber or health prober; the matching
// loop is then not started.
func NewBackgroundTasks(paymentUC usecase.PaymentUsecase, subscriber domain.SubscriberPort, health Prober, cfg Config) *BackgroundTasks {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &BackgroundTasks{
		PaymentUsecase: paymentUC,
		Subscriber:     subscriber,
		Health:         health,
		cfg:            cfg,
	}
}

func (bt *BackgroundTasks) StartAll(ctx context.Context) {
	bt.spawn(ctx, bt.startExpirySweep)
	if bt.Health != nil {
		bt.spawn(ctx, bt.startHealthProbe)
	}
	if bt.Subscriber != nil && bt.cfg.VerifyRequestsTopic != "" {
		bt.spawn(ctx, bt.startVerifyConsumer)
	}
}

// Wait returns once every loop started by StartAll has exited.
func (bt *BackgroundTasks) Wait() {
	bt.wg.Wait()
}

func (bt *BackgroundTasks) spawn(ctx context.Context, loop func(context.Context)) {
	bt.wg.Add(1)
	go func() {
		defer bt.wg.Done()
		loop(ctx)
	}()
}

// RunSweepOnce releases stuck verifications first so they are not counted as
// open, then expires one batch of stale checkouts.
func (bt *BackgroundTasks) RunSweepOnce(ctx context.Context) error {
	recovered, recoverErr := bt.PaymentUsecase.RecoverStuck(ctx)
	if recovered > 0 {
		slog.Warn("stuck verifications released", "count", recovered)
	}

	expired, expireErr := bt.PaymentUsecase.ExpireStale(ctx)
	if expired > 0 {
		slog.Info("stale checkouts expired", "count", expired)
	}

	return errors.Join(recoverErr, expireErr)
}

func (bt *BackgroundTasks) startExpirySweep(ctx context.Context) {
	ticker := time.NewTicker(bt.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := bt.RunSweepOnce(ctx); err != nil {
				slog.Error("expiry sweep error", "error", err.Error())
			}
		}
	}
}

func (bt *BackgroundTasks) startHealthProbe(ctx context.Context) {
	_ = bt.Health.Probe(ctx)

	ticker := time.NewTicker(healthProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			_ = bt.Health.Probe(probeCtx)
			cancel()
		}
	}
}

// startVerifyConsumer lets other services ask for a verification through
// Kafka, e.g. the booking service after a support ticket.
func (bt *BackgroundTasks) startVerifyConsumer(ctx context.Context) {
	msgs, err := bt.Subscriber.Subscribe(ctx, bt.cfg.VerifyRequestsTopic, bt.cfg.GroupID)
	if err != nil {
		slog.Error("failed to subscribe to verify requests", "topic", bt.cfg.VerifyRequestsTopic, "error", err.Error())
		return
	}
	slog.Info("verify request consumer started", "topic", bt.cfg.VerifyRequestsTopic)

	for msg := range msgs {
		bt.HandleVerifyRequest(ctx, msg)
	}
}

func (bt *BackgroundTasks) HandleVerifyRequest(ctx context.Context, msg domain.Message) {
	var req publisher.VerifyRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		slog.Warn("skipping malformed verify request", "error", err.Error())
		return
	}
	if req.TxRef == "" {
		req.TxRef = string(msg.Key)
	}
	if !reference.IsValid(req.TxRef) {
		slog.Warn("skipping verify request with bad tx_ref", "tx_ref", req.TxRef)
		return
	}

	tx, err := bt.PaymentUsecase.Verify(ctx, req.TxRef, domain.TriggerManualPoll)
	if err != nil {
		slog.Error("verify request failed", "tx_ref", req.TxRef, "error", err.Error())
		return
	}
	slog.Info("verify request processed", "tx_ref", tx.Reference, "status", tx.Status)
}
