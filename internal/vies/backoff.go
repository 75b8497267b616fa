package vies

import "time"

// Backoff returns the wait before retrying after the given attempt:
// base × 2^(attempt−1). Attempts are clamped to [1, MaxAttempts].
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > MaxAttempts {
		attempt = MaxAttempts
	}
	return base << (attempt - 1)
}
