// Package connect bootstraps store connections with bounded, linearly backed-off retries.
package connect

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Policy bounds connection attempts. The wait before attempt n+1 is Delay*n.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// LinearBackoff returns a go-retry backoff that waits delay, 2*delay, 3*delay...
func LinearBackoff(delay time.Duration) retry.Backoff {
	var step int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		step++
		return time.Duration(step) * delay, false
	})
}

// Do runs fn until it succeeds, the policy is exhausted or ctx ends. Every
// failed attempt is logged at warn level under name.
func Do(ctx context.Context, logger *slog.Logger, name string, policy Policy, fn func(context.Context) error) error {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	backoff := retry.WithMaxRetries(uint64(policy.Attempts-1), LinearBackoff(policy.Delay))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := fn(ctx); err != nil {
			logger.WarnContext(ctx, "connection attempt failed",
				"target", name,
				"attempt", attempt,
				"max_attempts", policy.Attempts,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("CONNECT_FAILED").
			With("target", name).
			With("attempts", attempt).
			Wrap(err)
	}
	if attempt > 1 {
		logger.InfoContext(ctx, "connected after retry", "target", name, "attempts", attempt)
	}
	return nil
}
