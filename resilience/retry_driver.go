package resilience

import (
	"context"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
)

// StopCondition reports whether a failure must not be retried.
type StopCondition func(err error) bool

// RetryDriver runs an operation until it succeeds, a stop condition matches,
// or the attempt or time budget is spent. Configuration methods return a
// modified copy and never change the receiver, so a driver can be shared.
type RetryDriver struct {
	policy   RetryPolicy
	mapError func(error) error
	stopOn   []StopCondition
	onRetry  func(attempt int)
	log      *logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryDriver returns a driver with DefaultRetryPolicy.
func NewRetryDriver() *RetryDriver {
	return NewRetryDriverWithPolicy(DefaultRetryPolicy())
}

// NewRetryDriverWithPolicy returns a driver using p.
func NewRetryDriverWithPolicy(p RetryPolicy) *RetryDriver {
	return &RetryDriver{
		policy: p,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

func (d *RetryDriver) clone() *RetryDriver {
	cp := *d
	cp.stopOn = slices.Clone(d.stopOn)
	return &cp
}

// Policy returns the numeric settings.
func (d *RetryDriver) Policy() RetryPolicy { return d.policy }

// MaxAttempts returns a copy limited to n attempts.
func (d *RetryDriver) MaxAttempts(n int) *RetryDriver {
	cp := d.clone()
	cp.policy.MaxAttempts = n
	return cp
}

// ExponentialBackoff returns a copy with the given sleep bounds, time budget
// and scale factor.
func (d *RetryDriver) ExponentialBackoff(minSleep, maxSleep, maxRetryTime time.Duration, scaleFactor float64) *RetryDriver {
	cp := d.clone()
	cp.policy.MinSleep = minSleep
	cp.policy.MaxSleep = maxSleep
	cp.policy.MaxRetryTime = maxRetryTime
	cp.policy.ScaleFactor = scaleFactor
	return cp
}

// OnRetry returns a copy that calls fn before every attempt after the first.
func (d *RetryDriver) OnRetry(fn func(attempt int)) *RetryDriver {
	cp := d.clone()
	cp.onRetry = fn
	return cp
}

// MapError returns a copy that passes every failure through fn before stop
// conditions are checked and before it is recorded.
func (d *RetryDriver) MapError(fn func(error) error) *RetryDriver {
	cp := d.clone()
	cp.mapError = fn
	return cp
}

// StopOn returns a copy with additional stop conditions, evaluated in order.
func (d *RetryDriver) StopOn(conds ...StopCondition) *RetryDriver {
	cp := d.clone()
	cp.stopOn = append(cp.stopOn, conds...)
	return cp
}

// StopOnErrors stops on any failure matching one of targets with errors.Is.
func (d *RetryDriver) StopOnErrors(targets ...error) *RetryDriver {
	conds := make([]StopCondition, 0, len(targets))
	for _, target := range targets {
		conds = append(conds, func(err error) bool { return errors.Is(err, target) })
	}
	return d.StopOn(conds...)
}

// StopOnKinds stops on any failure of the given kinds.
func (d *RetryDriver) StopOnKinds(kinds ...errors.Kind) *RetryDriver {
	conds := make([]StopCondition, 0, len(kinds))
	for _, kind := range kinds {
		conds = append(conds, func(err error) bool { return errors.IsKind(err, kind) })
	}
	return d.StopOn(conds...)
}

// StopOnIllegal stops on invalid-argument and illegal-state failures.
func (d *RetryDriver) StopOnIllegal() *RetryDriver {
	return d.StopOnKinds(errors.KindInvalidArgument, errors.KindIllegalState)
}

// WithLogger returns a copy logging retries to l.
func (d *RetryDriver) WithLogger(l *logger.Logger) *RetryDriver {
	cp := d.clone()
	cp.log = l
	return cp
}

// Run calls fn until it succeeds. See Retry.
func (d *RetryDriver) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	_, err := Retry(ctx, d, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Retry calls fn until it succeeds and returns its value. On failure the
// returned error is a *RetryError wrapping the last (mapped) failure, with
// the earlier failures attached as Suppressed. A stop condition ends the
// loop without sleeping. Cancelling ctx while sleeping ends the loop with a
// KindInterrupted failure.
func Retry[T any](ctx context.Context, d *RetryDriver, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero       T
		suppressed []error
		start      = d.now()
		log        = d.log
	)
	if log == nil {
		log = logger.Get("retry")
	}

	for attempt := 1; ; attempt++ {
		if attempt > 1 && d.onRetry != nil {
			d.onRetry(attempt)
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if d.mapError != nil {
			err = d.mapError(err)
		}

		for _, stop := range d.stopOn {
			if stop(err) {
				return zero, newRetryError(name, attempt, err, suppressed)
			}
		}
		if attempt >= d.policy.MaxAttempts || d.now().Sub(start) >= d.policy.MaxRetryTime {
			return zero, newRetryError(name, attempt, err, suppressed)
		}

		suppressed = append(suppressed, err)
		delay := d.policy.Delay(attempt)
		if jitter := delay / 10; jitter > 0 {
			delay += rand.N(jitter + 1)
		}

		log.Debug("will retry", logger.Fields(
			logger.FieldOperation, name,
			logger.FieldAttempt, attempt,
			logger.FieldDelay, delay.Milliseconds(),
			logger.FieldError, err,
		))

		if serr := d.sleep(ctx, delay); serr != nil {
			return zero, newRetryError(name, attempt, errors.Interrupted(name, serr), suppressed)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
