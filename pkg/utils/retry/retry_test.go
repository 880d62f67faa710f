package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/opst/eoflow/pkg/utils/retry"
)

func TestBlocking(t *testing.T) {
	t.Run("it retries until f succeeds", func(t *testing.T) {
		calls := 0
		value, err := retry.Blocking(
			context.Background(), retry.StaticBackoff(time.Millisecond),
			func() (int, error) {
				calls += 1
				if calls < 3 {
					return calls, fmt.Errorf("not yet: %w", retry.ErrRetry)
				}
				return calls, nil
			},
		)
		if err != nil {
			t.Fatal(err)
		}
		if value != 3 || calls != 3 {
			t.Errorf("(value, calls) = (%d, %d)", value, calls)
		}
	})

	t.Run("it stops on an error which is not ErrRetry", func(t *testing.T) {
		fatal := errors.New("fake error")
		calls := 0
		_, err := retry.Blocking(
			context.Background(), retry.StaticBackoff(time.Millisecond),
			func() (int, error) {
				calls += 1
				return 0, fatal
			},
		)
		if !errors.Is(err, fatal) {
			t.Errorf("unexpected error: %v", err)
		}
		if calls != 1 {
			t.Errorf("calls: %d", calls)
		}
	})

	t.Run("it stops when the backoff is interrupted", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := retry.Blocking(
			ctx, retry.StaticBackoff(time.Millisecond),
			func() (int, error) {
				calls += 1
				cancel()
				return 0, retry.ErrRetry
			},
		)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
		if calls != 1 {
			t.Errorf("calls: %d", calls)
		}
	})
}

func TestExponentialBackoff(t *testing.T) {
	b := retry.ExponentialBackoff(10*time.Millisecond, 3)

	before := time.Now()
	if err := b(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := b(context.Background()); err != nil {
		t.Fatal(err)
	}
	if took := time.Since(before); took < 40*time.Millisecond {
		t.Errorf("backoff is too short: %s", took)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("unexpected error: %v", err)
	}
}
