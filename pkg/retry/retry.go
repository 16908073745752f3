// Package retry runs an operation until it succeeds according to a [Policy].
//
// A zero MaxAttempts means the operation is retried forever (until the context is done).
package retry

import (
	"context"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
)

// ErrExhausted marks errors returned by [Do] after the policy ran out of attempts.
var ErrExhausted = errors.New("retry attempts exhausted")

type Backoff string

const (
	BackoffFixed       Backoff = "fixed"
	BackoffExponential Backoff = "exponential"
)

const (
	defaultMultiplier = 2.0
	defaultMaxDelay   = time.Minute
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first one. 0 is unlimited.
	MaxAttempts uint64 `mapstructure:"max_attempts"`

	// Delay is the wait between attempts (fixed), or the first wait (exponential).
	Delay time.Duration `mapstructure:"delay"`

	// Backoff is the backoff strategy, "fixed" (default) or "exponential".
	Backoff Backoff `mapstructure:"backoff"`

	// MaxDelay caps the exponential wait. (default: 1m)
	MaxDelay time.Duration `mapstructure:"max_delay"`

	// Multiplier is the exponential growth factor. (default: 2)
	Multiplier float64 `mapstructure:"multiplier"`
}

// Fixed returns an unlimited policy waiting delay between attempts.
func Fixed(delay time.Duration) Policy {
	return Policy{
		Delay:   delay,
		Backoff: BackoffFixed,
	}
}

// WithMaxAttempts returns a copy of the policy bounded to n attempts.
func (p Policy) WithMaxAttempts(n uint64) Policy {
	p.MaxAttempts = n
	return p
}

// IsUnlimited reports whether the policy never gives up.
func (p Policy) IsUnlimited() bool {
	return p.MaxAttempts == 0
}

func (p Policy) newBackOff() backoff.BackOff {
	var b backoff.BackOff
	switch p.Backoff {
	case BackoffExponential:
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = utils.Default(p.Delay, eb.InitialInterval)
		eb.Multiplier = utils.Default(p.Multiplier, defaultMultiplier)
		eb.MaxInterval = utils.Default(p.MaxDelay, defaultMaxDelay)
		eb.RandomizationFactor = 0
		eb.MaxElapsedTime = 0 // never stop on elapsed time, only on attempts
		eb.Reset()
		b = eb
	default:
		b = backoff.NewConstantBackOff(p.Delay)
	}
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, p.MaxAttempts-1)
	}
	return b
}

// Notify is called after a failed attempt, before waiting for the next one.
type Notify func(err error, attempt uint64, wait time.Duration)

// Permanent wraps err so that [Do] stops retrying and returns err.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it returns nil, the policy gives up, op returns a [Permanent] error or ctx is done.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error, notify Notify) error {
	var (
		attempt   uint64
		permanent bool
	)
	operation := func() error {
		attempt++
		err := op(ctx)
		var perr *backoff.PermanentError
		if errors.As(err, &perr) {
			permanent = true
		}
		return err
	}
	onRetry := func(err error, wait time.Duration) {
		if notify != nil {
			notify(err, attempt, wait)
		}
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(policy.newBackOff(), ctx), onRetry)
	switch {
	case err == nil:
		return nil
	case permanent:
		return errors.WithStack(err)
	case ctx.Err() != nil:
		return errors.Wrapf(ctx.Err(), "retry canceled after %d attempts", attempt)
	default:
		return errors.Mark(errors.Wrapf(err, "gave up after %d attempts", attempt), ErrExhausted)
	}
}
