package lastfm

import (
	"math/rand/v2"
	"time"
)

// RetryStrategy decides whether a request should be attempted and how
// long to wait before doing so.
//
// RetryAfter is called before every attempt with the zero-based attempt
// index. Returning false stops the request and the call fails with a
// *TooManyRetriesError. Returning true makes the client wait for the
// returned duration and then perform the request.
//
// A strategy that always returns true retries forever. That is a policy
// choice and is allowed.
type RetryStrategy interface {
	RetryAfter(attempt int) (time.Duration, bool)
}

// RetryStrategyFunc adapts an ordinary function to a RetryStrategy.
type RetryStrategyFunc func(attempt int) (time.Duration, bool)

// RetryAfter calls f(attempt).
func (f RetryStrategyFunc) RetryAfter(attempt int) (time.Duration, bool) {
	return f(attempt)
}

// DefaultMaxRetries is the number of attempts made by the default strategy.
const DefaultMaxRetries = 5

// JitteredBackoff is the default retry strategy.
//
// The first attempt is made immediately. Attempt n waits
//
//	2^n * 1000ms - jitter
//
// where jitter is uniformly distributed in [1, 999] milliseconds, so the
// wait is always strictly less than 2^n seconds. No attempt is made once
// n reaches MaxRetries.
type JitteredBackoff struct {
	MaxRetries int

	// Rand returns a random number in [0, n). Defaults to math/rand/v2.
	Rand func(n int64) int64
}

// NewJitteredBackoff returns a JitteredBackoff. A non-positive maxRetries
// selects DefaultMaxRetries.
func NewJitteredBackoff(maxRetries int) *JitteredBackoff {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &JitteredBackoff{MaxRetries: maxRetries}
}

// DefaultRetryStrategy returns the strategy used when Config.RetryStrategy
// is nil.
func DefaultRetryStrategy() RetryStrategy {
	return NewJitteredBackoff(DefaultMaxRetries)
}

// RetryAfter implements RetryStrategy.
func (b *JitteredBackoff) RetryAfter(attempt int) (time.Duration, bool) {
	if attempt < 0 || attempt >= b.MaxRetries {
		return 0, false
	}
	if attempt == 0 {
		return 0, true
	}

	randN := b.Rand
	if randN == nil {
		randN = rand.Int64N
	}

	// Cap the exponent so the shift cannot overflow.
	exp := min(attempt, 30)
	base := (int64(1) << exp) * 1000
	jitter := 1 + randN(999)
	return time.Duration(base-jitter) * time.Millisecond, true
}

// NoRetry makes a single attempt and never retries.
var NoRetry RetryStrategy = RetryStrategyFunc(func(attempt int) (time.Duration, bool) {
	return 0, attempt == 0
})

// ConstantBackoff waits Delay between attempts. The first attempt is made
// immediately. A negative MaxRetries retries forever.
type ConstantBackoff struct {
	Delay      time.Duration
	MaxRetries int
}

// RetryAfter implements RetryStrategy.
func (c ConstantBackoff) RetryAfter(attempt int) (time.Duration, bool) {
	if c.MaxRetries >= 0 && attempt >= c.MaxRetries {
		return 0, false
	}
	if attempt == 0 {
		return 0, true
	}
	return c.Delay, true
}
