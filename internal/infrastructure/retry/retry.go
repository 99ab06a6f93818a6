package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Notify is called before each wait with the retry number, the delay and the
// error that caused it.
type Notify func(retry int, delay time.Duration, err error)

// Run calls op until it succeeds, returns a non-retriable error, or the policy
// runs out of retries. The last error is returned unchanged.
func Run[T any](ctx context.Context, op func(ctx context.Context) (T, error), p Policy) (T, error) {
	return RunWithNotify(ctx, op, p, nil)
}

func RunWithNotify[T any](ctx context.Context, op func(ctx context.Context) (T, error), p Policy, notify Notify) (T, error) {
	isRetriable := p.IsRetriable
	if isRetriable == nil {
		isRetriable = DefaultIsRetriable
	}

	b := newPolicyBackOff(p)
	var zero T
	retries := 0

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !isRetriable(err) {
			return zero, err
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return zero, err
		}
		retries++
		if notify != nil {
			notify(retries, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}
