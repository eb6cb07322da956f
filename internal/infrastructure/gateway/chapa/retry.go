package chapa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/cenkalti/backoff/v4"
)

const maxBackoffInterval = 30 * time.Second

type retryPolicy struct {
	maxAttempts int
	base        time.Duration
	factor      float64
}

func (p retryPolicy) attempts() int {
	if p.maxAttempts < 1 {
		return 1
	}
	return p.maxAttempts
}

// backOff builds a deterministic exponential schedule: base, base*factor, ...
// capped by the attempt budget and stopped by ctx.
func (p retryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.base
	b.RandomizationFactor = 0
	b.Multiplier = p.factor
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.MaxInterval = maxBackoffInterval
	if b.MaxInterval < p.base {
		b.MaxInterval = p.base
	}
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.attempts()-1)), ctx)
}

// isRetryable: network failures and 5xx only. A 4xx is the gateway telling
// us the request itself is wrong and repeating it cannot help.
func isRetryable(err error) bool {
	return errors.Is(err, domain.ErrGatewayUnavailable) || errors.Is(err, domain.ErrGatewayError)
}

// withRetry runs call until it succeeds, fails permanently, or the attempts
// run out. Every attempt sends the same request, so the tx_ref doubles as the
// idempotency key on the gateway side.
func (c *Client) withRetry(ctx context.Context, op string, call func(context.Context) ([]byte, error)) ([]byte, error) {
	var (
		attempt int
		lastErr error
	)

	operation := func() ([]byte, error) {
		attempt++
		body, err := call(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	notify := func(err error, delay time.Duration) {
		if c.observer != nil {
			c.observer.ObserveGatewayRetry(op)
		}
		slog.Warn("gateway call failed, retrying",
			"operation", op,
			"attempt", attempt,
			"delay", delay.String(),
			"error", err.Error(),
		)
	}

	body, err := backoff.RetryNotifyWithData(operation, c.retry.backOff(ctx), notify)
	if err == nil {
		return body, nil
	}
	// backoff reports ctx.Err() when the wait is cut short; keep the gateway cause
	if ctxErr := ctx.Err(); ctxErr != nil && lastErr != nil && errors.Is(err, ctxErr) {
		return nil, fmt.Errorf("%w (retry aborted: %v)", lastErr, ctxErr)
	}
	return nil, err
}
