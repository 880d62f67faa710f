package recurring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opst/eoflow/pkg/loop"
	"github.com/opst/eoflow/pkg/loop/recurring"
)

func TestParsePolicy(t *testing.T) {
	for name, testcase := range map[string]struct {
		when        string
		then        recurring.Policy
		expectError bool
	}{
		"forever means forever": {
			when: "forever",
			then: recurring.Forever(0),
		},
		"forever:3s means forever with cooldown 3 seconds": {
			when: "forever:3s",
			then: recurring.Forever(3 * time.Second),
		},
		"forever:someday can not be parsed": {
			when:        "forever:someday",
			expectError: true,
		},
		"backlog means backlog": {
			when: "backlog",
			then: recurring.Backlog(),
		},
		"backlog:param can not be parsed": {
			when:        "backlog:param",
			expectError: true,
		},
		"empty string can not be parsed": {
			when:        "",
			expectError: true,
		},
		"unknown policy can not be parsed": {
			when:        "sometimes",
			expectError: true,
		},
	} {
		t.Run(name, func(t *testing.T) {
			actual, err := recurring.ParsePolicy(testcase.when)

			if testcase.expectError {
				if err == nil {
					t.Fatal("expected error does not occur")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if actual != testcase.then {
				t.Errorf("unmatch: (actual, expected) = (%v, %v)", actual, testcase.then)
			}
		})
	}
}

func TestPolicy_Next(t *testing.T) {
	fakeErr := errors.New("fake error")

	for name, testcase := range map[string]struct {
		policy  recurring.Policy
		updated bool
		err     error
		then    loop.Next
	}{
		"forever continues immediately when updated": {
			policy: recurring.Forever(time.Minute), updated: true,
			then: loop.Continue(0),
		},
		"forever cools down when nothing is updated": {
			policy: recurring.Forever(time.Minute), updated: false,
			then: loop.Continue(time.Minute),
		},
		"forever ignores errors": {
			policy: recurring.Forever(time.Minute), updated: false, err: fakeErr,
			then: loop.Continue(time.Minute),
		},
		"backlog continues immediately when updated": {
			policy: recurring.Backlog(), updated: true,
			then: loop.Continue(0),
		},
		"backlog breaks when nothing is updated": {
			policy: recurring.Backlog(), updated: false,
			then: loop.Break(nil),
		},
		"until error breaks with the error": {
			policy: recurring.UntilError(recurring.Forever(time.Minute)), updated: true, err: fakeErr,
			then: loop.Break(fakeErr),
		},
		"until error follows the base policy without errors": {
			policy: recurring.UntilError(recurring.Backlog()), updated: true,
			then: loop.Continue(0),
		},
	} {
		t.Run(name, func(t *testing.T) {
			actual := testcase.policy.Next(testcase.updated, testcase.err)
			if actual.String() != testcase.then.String() {
				t.Errorf("unmatch: (actual, expected) = (%s, %s)", actual, testcase.then)
			}
		})
	}
}

func TestTask_Applied(t *testing.T) {
	t.Run("it drains the backlog then breaks", func(t *testing.T) {
		backlog := []string{"job-1", "job-2", "job-3"}
		processed := []string{}

		task := recurring.Task[int](func(_ context.Context, n int) (int, bool, error) {
			if len(backlog) == 0 {
				return n, false, nil
			}
			processed = append(processed, backlog[0])
			backlog = backlog[1:]
			return n + 1, true, nil
		})

		actual, err := loop.Start(context.Background(), 0, task.Applied(recurring.Backlog()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actual != 3 {
			t.Errorf("count: expected 3, got %d", actual)
		}
		if len(processed) != 3 {
			t.Errorf("processed: %v", processed)
		}
	})

	t.Run("it stops at the first error with UntilError", func(t *testing.T) {
		fakeErr := errors.New("fake error")
		task := recurring.Task[int](func(_ context.Context, n int) (int, bool, error) {
			if n == 2 {
				return n, true, fakeErr
			}
			return n + 1, true, nil
		})

		actual, err := loop.Start(
			context.Background(), 0,
			task.Applied(recurring.UntilError(recurring.Forever(0))),
		)
		if !errors.Is(err, fakeErr) {
			t.Errorf("error: %v", err)
		}
		if actual != 2 {
			t.Errorf("count: expected 2, got %d", actual)
		}
	})
}
