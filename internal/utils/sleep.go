package utils

import (
	"context"
	"time"
)

// SleepCtx waits for the given duration or until the context is cancelled,
// whichever comes first. Returns the context error on cancellation so loops
// can exit promptly instead of finishing a long delay.
func SleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
