package payment

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Watcher polls the provider until a payment reaches a terminal status.
// One Wait call runs per order, in its own goroutine.
type Watcher struct {
	gateway  Gateway
	interval time.Duration
	logger   *zap.Logger
}

func NewWatcher(gateway Gateway, interval time.Duration, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Watcher{gateway: gateway, interval: interval, logger: logger}
}

// Wait blocks until the payment is terminal or ctx is canceled. Transient
// poll failures are retried under a capped exponential backoff with no
// elapsed-time limit; abandoning a payment is the caller's decision via ctx.
func (w *Watcher) Wait(ctx context.Context, paymentID string) (Status, error) {
	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.InitialInterval = w.interval
	retryPolicy.MaxInterval = 2 * time.Minute
	retryPolicy.MaxElapsedTime = 0

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return StatusPending, ctx.Err()

		case <-ticker.C:
			status, err := w.gateway.GetStatus(ctx, paymentID)
			if err != nil {
				wait := retryPolicy.NextBackOff()
				w.logger.Warn("Payment status poll failed, backing off",
					zap.String("payment_id", paymentID),
					zap.Duration("next_attempt_in", wait),
					zap.Error(err))

				select {
				case <-ctx.Done():
					return StatusPending, ctx.Err()
				case <-time.After(wait):
				}
				continue
			}

			retryPolicy.Reset()

			if status.Terminal() {
				return status, nil
			}
		}
	}
}
