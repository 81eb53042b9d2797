package mail

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry wraps a Mail implementation with bounded fibonacci backoff retries.
type Retry struct {
	next Mail
	cfg  RetryConfig
}

// RetryConfig configures retry behaviour for a wrapped Mail.
type RetryConfig struct {
	// MaxAttempts is the total number of tries including the first.
	MaxAttempts uint64
	// BaseDelay is the initial backoff delay.
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
}

// NewRetry wraps next with fibonacci backoff retries.
func NewRetry(next Mail, cfg RetryConfig) *Retry {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}

	return &Retry{next: next, cfg: cfg}
}

// Send delivers the message, retrying on failure until attempts run out or the
// context is canceled.
func (r *Retry) Send(ctx context.Context, msg Message) error {
	backoff := retry.NewFibonacci(r.cfg.BaseDelay)
	backoff = retry.WithCappedDuration(r.cfg.MaxDelay, backoff)
	backoff = retry.WithMaxRetries(r.cfg.MaxAttempts-1, backoff)

	attempt := 0

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		err := r.next.Send(ctx, msg)
		if err == nil {
			return nil
		}

		if ctx.Err() != nil {
			return err
		}

		slog.WarnContext(ctx, "mail send failed, will retry", "attempt", attempt, "error", err)

		return retry.RetryableError(err)
	})
}

// Close closes the wrapped Mail.
func (r *Retry) Close() error {
	return r.next.Close()
}
