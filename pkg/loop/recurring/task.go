package recurring

import (
	"context"

	"github.com/opst/eoflow/pkg/loop"
)

// Task is an iteration of a recurring loop.
//
// # Returns
//
// - T: the value for the next iteration, as loop.Task does.
//
// - bool: true when the iteration has processed something, so more backlog can be there.
//
// - error: a failure of the iteration. Whether the loop stops or not is up to Policy.
type Task[T any] func(context.Context, T) (T, bool, error)

// Applied makes a loop.Task which asks p what to do after each iteration.
func (rt Task[T]) Applied(p Policy) loop.Task[T] {
	return func(ctx context.Context, t T) (T, loop.Next) {
		next, updated, err := rt(ctx, t)
		return next, p.Next(updated, err)
	}
}
