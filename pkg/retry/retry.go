package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 10 * time.Second
	jitterWindow        = 1 * time.Second
)

// Policy controls how an operation is retried. The zero value gets the
// defaults: three attempts, exponential backoff from 1s capped at 10s with up
// to 1s of jitter, every error retried.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	ShouldRetry  func(error) bool
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = defaultInitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	return p
}

// Do invokes fn until it succeeds, the policy's attempts are exhausted, or
// ShouldRetry rejects the error. The terminal failure is always the most
// recent error fn returned, never a generic retries-exhausted wrapper.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	policy = policy.withDefaults()

	backoff := retry.NewExponential(policy.InitialDelay)
	backoff = withAdditiveJitter(jitterWindow, backoff)
	backoff = retry.WithCappedDuration(policy.MaxDelay, backoff)
	backoff = retry.WithMaxRetries(uint64(policy.MaxAttempts-1), backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if policy.ShouldRetry != nil && !policy.ShouldRetry(err) {
			return err
		}
		return retry.RetryableError(err)
	})
}

// withAdditiveJitter adds up to window on top of the wrapped delay. Unlike the
// library's symmetric jitter it never undershoots the exponential floor; the
// outer cap still bounds the result.
func withAdditiveJitter(window time.Duration, next retry.Backoff) retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := next.Next()
		if stop {
			return 0, true
		}
		return delay + time.Duration(rand.Int63n(int64(window))), false
	})
}
