package fetch

import "time"

// Policy is an explicit retry strategy injected into the Fetcher so tests
// can substitute a zero-delay variant.
type Policy struct {
	// MaxAttempts bounds the total number of tries, including the first.
	MaxAttempts int
	// Backoff returns the delay before the given retry attempt (1-based).
	Backoff func(attempt int) time.Duration
}

// DefaultPolicy retries transient failures with exponential backoff:
// 1s, 2s, 4s, ...
func DefaultPolicy(maxAttempts int) Policy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return Policy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			return time.Second << (attempt - 1)
		},
	}
}

// NoDelayPolicy retries without sleeping. Intended for tests.
func NoDelayPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Backoff:     func(int) time.Duration { return 0 },
	}
}
