package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	publisher "github.com/LavaJover/shvark-checkout-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/notifier"
	nanoid "github.com/jaevor/go-nanoid"
)

type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event publisher.PaymentEvent) error
}

type CallbackSender interface {
	SendCallback(ctx context.Context, callbackURL string, payload notifier.CallbackPayload) error
}

// Hook tells downstream collaborators that a ticket order was paid: a Kafka
// event for the booking service and, optionally, an HTTP callback.
type Hook struct {
	events      EventPublisher
	callbacks   CallbackSender
	callbackURL string
	newID       func() string
	now         func() time.Time
}

// NewHook accepts nil events or callbacks for deployments that use only one channel.
func NewHook(events EventPublisher, callbacks CallbackSender, callbackURL string) (*Hook, error) {
	idGenerator, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("init event id generator: %w", err)
	}
	return &Hook{
		events:      events,
		callbacks:   callbacks,
		callbackURL: callbackURL,
		newID:       idGenerator,
		now:         time.Now,
	}, nil
}

func (h *Hook) OnPaymentSuccess(ctx context.Context, tx *domain.Transaction) error {
	var errs []error
	now := h.now().UTC()

	if h.events != nil {
		event := publisher.NewPaymentSucceededEvent(h.newID(), tx, now)
		if err := h.events.PublishPaymentEvent(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("publish payment event: %w", err))
		}
	}

	if h.callbacks != nil && h.callbackURL != "" {
		payload := notifier.CallbackPayload{
			TxRef:       tx.Reference,
			Status:      string(tx.Status),
			Amount:      tx.Amount.StringFixed(2),
			Currency:    tx.Currency,
			PayerEmail:  tx.Payer.Email,
			ConfirmedAt: now,
		}
		if err := h.callbacks.SendCallback(ctx, h.callbackURL, payload); err != nil {
			errs = append(errs, fmt.Errorf("fulfillment callback: %w", err))
		}
	}

	if h.events == nil && (h.callbacks == nil || h.callbackURL == "") {
		slog.Warn("no fulfillment channel configured", "tx_ref", tx.Reference)
	}

	return errors.Join(errs...)
}
