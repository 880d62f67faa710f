// Package retry calls a function again while it reports ErrRetry.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrRetry marks errors worth another attempt. Match it with errors.Is.
var ErrRetry = errors.New("retry")

// Backoff blocks until the next attempt.
//
// It returns ctx.Err() when ctx is done before that.
type Backoff func(context.Context) error

// StaticBackoff waits interval on each call.
func StaticBackoff(interval time.Duration) Backoff {
	return ExponentialBackoff(interval, 1)
}

// ExponentialBackoff waits initial on the first call,
// and the interval is multiplied by r on each call.
func ExponentialBackoff(initial time.Duration, r float64) Backoff {
	interval := initial
	return func(ctx context.Context) error {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			interval = time.Duration(float64(interval) * r)
			return nil
		}
	}
}

// Blocking waits b, then calls f, while f returns an error wrapping ErrRetry.
//
// # Returns
//
// - T: the value f returned last.
//
// - error: nil when f succeeded. The error from f when it is not ErrRetry,
// or the error from b when it is interrupted.
func Blocking[T any](ctx context.Context, b Backoff, f func() (T, error)) (T, error) {
	var last T
	for {
		if err := b(ctx); err != nil {
			return last, err
		}

		var err error
		last, err = f()
		if err == nil || !errors.Is(err, ErrRetry) {
			return last, err
		}
	}
}
