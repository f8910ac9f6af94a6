package resilience

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/kbukum/httpkit/errors"
)

// RateLimiterConfig configures a token bucket rate limiter.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string `yaml:"-" mapstructure:"-"`
	// Rate is the number of requests allowed per second.
	Rate float64 `yaml:"rate" mapstructure:"rate" validate:"gte=0"`
	// Burst is the maximum burst size.
	Burst int `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
	// OnLimit is called when a request has to wait or is rejected.
	OnLimit func(name string) `yaml:"-" mapstructure:"-"`
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:  name,
		Rate:  10.0,
		Burst: 20,
	}
}

// RateLimiter is a token bucket limiter backed by golang.org/x/time/rate.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 10.0
	}
	if config.Burst <= 0 {
		config.Burst = max(1, int(config.Rate))
	}
	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
	}
}

// Allow reports whether a request may proceed now, consuming a token if so.
func (rl *RateLimiter) Allow() bool {
	if rl.limiter.Allow() {
		return true
	}
	rl.limited()
	return false
}

// Wait blocks until a token is available or ctx is done. A context error is
// returned as KindInterrupted or KindTimeout.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limiter.Allow() {
		return nil
	}
	rl.limited()
	if err := rl.limiter.Wait(ctx); err != nil {
		if cerr := errors.FromContext("rate_limiter.wait", ctx.Err()); cerr != nil {
			return cerr.WithCause(err)
		}
		return errors.Timeout("rate_limiter.wait", err)
	}
	return nil
}

// Tokens returns the number of tokens currently available.
func (rl *RateLimiter) Tokens() float64 { return rl.limiter.Tokens() }

// Rate returns the rate limit (requests per second).
func (rl *RateLimiter) Rate() float64 { return rl.config.Rate }

// Burst returns the burst size.
func (rl *RateLimiter) Burst() int { return rl.config.Burst }

func (rl *RateLimiter) limited() {
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
}
