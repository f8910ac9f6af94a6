// Package resilience provides retry and rate limiting for outbound calls.
//
// RetryDriver retries an operation with exponential backoff and up to ten
// percent jitter, honoring an attempt limit, a wall-clock budget and ordered
// stop conditions:
//
//	driver := resilience.NewRetryDriver().
//		MaxAttempts(5).
//		ExponentialBackoff(100*time.Millisecond, 2*time.Second, 30*time.Second, 2).
//		StopOnIllegal()
//
//	user, err := resilience.Retry(ctx, driver, "fetch-user", func(ctx context.Context) (*User, error) {
//		return api.GetUser(ctx, id)
//	})
//
// RateLimiter is a token bucket used by clients to pace requests.
package resilience
