package resilience

import (
	"time"

	"github.com/kbukum/httpkit/errors"
)

const (
	defaultMaxAttempts  = 10
	defaultSleep        = time.Second
	defaultScaleFactor  = 2.0
	defaultMaxRetryTime = 30 * time.Second
)

// RetryPolicy holds the numeric retry settings.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1"`
	// MinSleep is the delay after the first failure.
	MinSleep time.Duration `yaml:"min_sleep" mapstructure:"min_sleep" validate:"gte=0"`
	// MaxSleep caps the delay between attempts.
	MaxSleep time.Duration `yaml:"max_sleep" mapstructure:"max_sleep" validate:"gte=0"`
	// ScaleFactor multiplies the delay after each failure.
	ScaleFactor float64 `yaml:"scale_factor" mapstructure:"scale_factor" validate:"gte=1"`
	// MaxRetryTime is a wall-clock budget. No retry starts once it is spent.
	MaxRetryTime time.Duration `yaml:"max_retry_time" mapstructure:"max_retry_time" validate:"gte=0"`
}

// DefaultRetryPolicy returns ten attempts with a one second delay, scale
// factor two and a thirty second budget.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  defaultMaxAttempts,
		MinSleep:     defaultSleep,
		MaxSleep:     defaultSleep,
		ScaleFactor:  defaultScaleFactor,
		MaxRetryTime: defaultMaxRetryTime,
	}
}

// ApplyDefaults fills in zero-value fields.
func (p *RetryPolicy) ApplyDefaults() {
	d := DefaultRetryPolicy()
	if p.MaxAttempts == 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.MinSleep == 0 {
		p.MinSleep = d.MinSleep
	}
	if p.MaxSleep == 0 {
		p.MaxSleep = max(d.MaxSleep, p.MinSleep)
	}
	if p.ScaleFactor == 0 {
		p.ScaleFactor = d.ScaleFactor
	}
	if p.MaxRetryTime == 0 {
		p.MaxRetryTime = d.MaxRetryTime
	}
}

// Validate checks that the policy is usable.
func (p RetryPolicy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return errors.InvalidArgument("retry: max attempts must be at least 1, got %d", p.MaxAttempts)
	case p.MinSleep < 0 || p.MaxSleep < 0:
		return errors.InvalidArgument("retry: sleep durations must not be negative")
	case p.MaxSleep < p.MinSleep:
		return errors.InvalidArgument("retry: max sleep %s is below min sleep %s", p.MaxSleep, p.MinSleep)
	case p.ScaleFactor < 1:
		return errors.InvalidArgument("retry: scale factor must be at least 1, got %g", p.ScaleFactor)
	case p.MaxRetryTime < 0:
		return errors.InvalidArgument("retry: max retry time must not be negative")
	}
	return nil
}

// Delay returns the base delay before the attempt following the given
// failed attempt (1-based), without jitter.
func (p RetryPolicy) Delay(failedAttempt int) time.Duration {
	d := float64(p.MinSleep)
	for range failedAttempt - 1 {
		d *= p.ScaleFactor
		if d >= float64(p.MaxSleep) {
			return p.MaxSleep
		}
	}
	return min(time.Duration(d), p.MaxSleep)
}
