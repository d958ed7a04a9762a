package cloudsync

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const maxRetryDelay = 30 * time.Second

// retryPolicy repeats remote calls with a doubling delay. The remote store
// is optional for play, so the policy gives up rather than block the sync.
type retryPolicy struct {
	attempts int
	delay    time.Duration
	logger   *zap.Logger
}

func newRetryPolicy(maxRetries int, baseDelay time.Duration, logger *zap.Logger) retryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return retryPolicy{attempts: maxRetries + 1, delay: baseDelay, logger: logger}
}

// do runs fn until it succeeds, the attempts run out or ctx ends.
func (p retryPolicy) do(ctx context.Context, op string, fn func(context.Context) error) error {
	delay := p.delay
	var err error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == p.attempts {
			break
		}
		p.logger.Debug("retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryDelay)
	}
	return err
}
