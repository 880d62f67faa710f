package taskutil

import (
	"context"
	"errors"

	"github.com/opst/eoflow/pkg/domain"
)

// Hook is run after a task reaches a terminal status.
//
// A hook can be run more than once for a task, maybe by different processes.
type Hook func(ctx context.Context, taskId string, status domain.ExecutionStatus) error

// CompletionHooks runs the same hooks for every task finishing.
//
// Hooks keep their state out of the process (e.g., in the database),
// so that any process can finish a task which another one has started.
type CompletionHooks struct {
	hooks []Hook
}

func NewCompletionHooks(hooks ...Hook) *CompletionHooks {
	return &CompletionHooks{hooks: hooks}
}

// Run runs hooks in order.
//
// Every hook runs even when others fail. Errors are joined.
func (c *CompletionHooks) Run(ctx context.Context, taskId string, status domain.ExecutionStatus) error {
	errs := make([]error, 0, len(c.hooks))
	for _, h := range c.hooks {
		if err := h(ctx, taskId, status); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
