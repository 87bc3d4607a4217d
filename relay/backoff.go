package relay

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffFunc returns the wait before a reconnect attempt. The attempt
// parameter is one-based: 1 for the first retry after a disconnect or
// failed connection, 2 for the next consecutive failure.
type BackoffFunc func(attempt int) time.Duration

// ConstantBackoff returns delay for every attempt, with optional jitter:
// 0.0 = none, 0.2 = ±20%.
func ConstantBackoff(delay time.Duration, jitter float64) BackoffFunc {
	applyJitter := newApplyJitterFunc(jitter)
	return func(int) time.Duration {
		return applyJitter(delay)
	}
}

// ExponentialBackoff waits initialDelay * factor^(attempt-1), capped at
// maxDelay (0 = no cap), with optional jitter.
func ExponentialBackoff(initialDelay time.Duration, factor float64, maxDelay time.Duration, jitter float64) BackoffFunc {
	applyJitter := newApplyJitterFunc(jitter)
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		f := float64(initialDelay) * math.Pow(factor, float64(attempt-1))
		if maxDelay > 0 && f >= float64(maxDelay) {
			return applyJitter(maxDelay)
		}
		return applyJitter(clampDuration(f))
	}
}

func newApplyJitterFunc(jitter float64) func(d time.Duration) time.Duration {
	jitter = min(max(jitter, 0), 1)
	if jitter == 0 {
		return func(d time.Duration) time.Duration { return d }
	}
	return func(d time.Duration) time.Duration {
		jitterFactor := 1.0 + (rand.Float64()*2*jitter - jitter)
		return clampDuration(float64(d) * jitterFactor)
	}
}

// clampDuration converts f to a Duration, saturating instead of
// overflowing.
func clampDuration(f float64) time.Duration {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(f)
}
