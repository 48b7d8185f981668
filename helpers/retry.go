package helpers

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, sleeping between attempts with
// exponential backoff capped at max. The last error is returned once the
// attempt budget is exhausted. Context cancellation aborts the wait.
func Retry(ctx context.Context, attempts int, initial, max time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	delay := initial
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			if delay < max {
				delay *= 2
				if delay > max {
					delay = max
				}
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
