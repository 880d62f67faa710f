package executor

import (
	"context"
	"errors"

	"github.com/opst/eoflow/pkg/domain"
)

var (
	// no executors support the component of a task. This is not retryable.
	ErrNoExecutor = errors.New("no associated executor")

	ErrDuplicatedExecutor = errors.New("executor is registered already")

	// the executor cannot report progress of workloads.
	ErrNotObservable = errors.New("executor is not observable")

	// the manager has been initialized. No more executors can be registered.
	ErrSealed = errors.New("executors are sealed")
)

// Receipt is what an executor returns when it accepts an operation.
type Receipt struct {
	// Name of the executor. Manager fills it when it is empty.
	Executor string

	// Handle of the workload. Empty when the operation does not create one.
	ResourceId string
}

// Observation is a progress of a workload, seen by an executor.
type Observation struct {
	Status domain.ExecutionStatus

	// not nil when the workload has exited.
	Exit *domain.TaskExit

	// Values produced by the workload, if the executor knows them.
	Outputs map[string]string
}

// Executor is a backend which can run workloads of some kind of components.
//
// Operations should be safe to be called on tasks which have been finished.
// Stopping missing workloads is not an error.
type Executor interface {
	// Name of the executor. It should be unique in a Manager.
	Name() string

	// Supports tells whether this executor can run the component.
	Supports(domain.Component) bool

	Initialize(ctx context.Context) error
	Close() error

	Execute(ctx context.Context, task domain.ExecutionTask, component domain.Component) (Receipt, error)
	Stop(ctx context.Context, task domain.ExecutionTask, component domain.Component) (Receipt, error)
	Suspend(ctx context.Context, task domain.ExecutionTask, component domain.Component) (Receipt, error)
	Resume(ctx context.Context, task domain.ExecutionTask, component domain.Component) (Receipt, error)
}

// Observer is an Executor which can tell progress of workloads.
type Observer interface {
	Observe(ctx context.Context, task domain.ExecutionTask) (Observation, error)
}
