package util

import (
	"context"
	"math/rand"
	"time"
)

// Retry calls fn up to maxAttempts times. Attempt n waits baseDelay*2^(n-1)
// plus jitter before running, so concurrent retriers spread out instead of
// stampeding. It returns nil on the first success, ctx.Err() if the context
// ends while waiting, or the last error once attempts are exhausted.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(baseDelay, attempt)):
		}
	}
	return lastErr
}

// backoff doubles base per completed attempt and adds up to 25% random
// slack.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base << (attempt - 1)
	return d + time.Duration(rand.Int63n(int64(d)/4+1))
}
