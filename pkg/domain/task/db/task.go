package db

import (
	"context"

	"github.com/opst/eoflow/pkg/domain"
)

// TaskFindQuery narrows tasks. Empty fields do not narrow.
type TaskFindQuery struct {
	JobId  string
	Status []domain.ExecutionStatus

	// when true, only tasks having ResourceId are matched.
	HasResource bool
}

// TaskInterface is the persistence of tasks.
//
// Every method writes a single task and is visible to readers right after it returns.
// Every method returns an error wrapping ErrMissing when no task has the id.
type TaskInterface interface {
	// Get returns the task, with members when it is a group.
	Get(ctx context.Context, taskId string) (domain.ExecutionTask, error)

	// Find returns ids of tasks matching the query.
	Find(ctx context.Context, query TaskFindQuery) ([]string, error)

	// SetStatus changes status of the task, when the task is in one of from.
	//
	// The current status is read and written under a row lock,
	// so that concurrent updaters cannot overwrite each other's decision.
	//
	// # Returns
	//
	// - error: *domain.StatusMismatch (ErrInvalidTransition) when the task is not in from.
	SetStatus(ctx context.Context, taskId string, from []domain.ExecutionStatus, status domain.ExecutionStatus) error

	SetInputs(ctx context.Context, taskId string, inputs map[string]string) error

	SetOutputs(ctx context.Context, taskId string, outputs map[string]string) error

	SetContext(ctx context.Context, taskId string, execCtx domain.ExecutionContext) error

	// SetResource records the executor which accepted the task, and the handle of the workload.
	SetResource(ctx context.Context, taskId string, executor string, resourceId string) error

	SetExit(ctx context.Context, taskId string, exit domain.TaskExit) error
}
