// Package retry runs an operation under a bounded attempt policy.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retry loop. With Linear set, the wait after the n-th failed
// attempt is n × Delay, otherwise it is Delay.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Linear      bool
}

func Linear(attempts int, step time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Delay: step, Linear: true}
}

func Constant(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Delay: delay}
}

// Notify is called after a failed attempt that will be retried.
type Notify func(err error, attempt int, next time.Duration)

// Permanent marks err as not worth retrying; Do returns it unwrapped.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, returns a Permanent error, the policy runs out
// of attempts or ctx is done. It reports how many attempts were made along with
// the last error.
func Do(ctx context.Context, p Policy, op func(ctx context.Context, attempt int) error, notify Notify) (int, error) {
	maxAttempts := max(p.MaxAttempts, 1)

	attempts := 0
	operation := func() error {
		attempts++
		return op(ctx, attempts)
	}

	var notifyFn backoff.Notify
	if notify != nil {
		notifyFn = func(err error, next time.Duration) {
			notify(err, attempts, next)
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.backOff(), uint64(maxAttempts-1)), ctx)

	err := backoff.RetryNotify(operation, b, notifyFn)

	return attempts, err
}

func (p Policy) backOff() backoff.BackOff {
	if p.Linear {
		return &linearBackOff{step: p.Delay}
	}
	return backoff.NewConstantBackOff(p.Delay)
}

type linearBackOff struct {
	step time.Duration
	n    int64
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return time.Duration(b.n) * b.step
}

func (b *linearBackOff) Reset() {
	b.n = 0
}
