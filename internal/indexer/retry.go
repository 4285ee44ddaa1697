package indexer

import (
	"context"
	"time"
)

const maxRetriesCap = 3

// withRetry calls fn up to maxRetries extra times within one poll cycle,
// waiting a fixed delay between attempts.
func withRetry(ctx context.Context, maxRetries int, delay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if maxRetries > maxRetriesCap {
		maxRetries = maxRetriesCap
	}
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
