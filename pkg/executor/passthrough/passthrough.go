// Package passthrough provides an executor for data sources whose values are given at launch.
//
// It runs nothing. Tasks are done as soon as they are observed, with their inputs as outputs.
package passthrough

import (
	"context"
	"maps"

	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/executor"
)

const Name = "passthrough"

type Passthrough struct{}

var _ executor.Executor = Passthrough{}
var _ executor.Observer = Passthrough{}

func New() Passthrough {
	return Passthrough{}
}

func (Passthrough) Name() string {
	return Name
}

func (Passthrough) Supports(c domain.Component) bool {
	return c.Kind == domain.DataSource && c.Runtime == domain.NoRuntime
}

func (Passthrough) Initialize(context.Context) error { return nil }

func (Passthrough) Close() error { return nil }

func (Passthrough) Execute(_ context.Context, task domain.ExecutionTask, _ domain.Component) (executor.Receipt, error) {
	return executor.Receipt{Executor: Name, ResourceId: task.Id}, nil
}

func (Passthrough) Stop(_ context.Context, task domain.ExecutionTask, _ domain.Component) (executor.Receipt, error) {
	return executor.Receipt{Executor: Name, ResourceId: task.ResourceId}, nil
}

func (Passthrough) Suspend(_ context.Context, task domain.ExecutionTask, _ domain.Component) (executor.Receipt, error) {
	return executor.Receipt{Executor: Name, ResourceId: task.ResourceId}, nil
}

func (Passthrough) Resume(_ context.Context, task domain.ExecutionTask, _ domain.Component) (executor.Receipt, error) {
	return executor.Receipt{Executor: Name, ResourceId: task.ResourceId}, nil
}

func (Passthrough) Observe(_ context.Context, task domain.ExecutionTask) (executor.Observation, error) {
	if task.Status != domain.QueuedActive && task.Status != domain.Running {
		return executor.Observation{Status: task.Status}, nil
	}
	outputs := map[string]string{}
	maps.Copy(outputs, task.Inputs)
	return executor.Observation{
		Status:  domain.Done,
		Exit:    &domain.TaskExit{Code: 0, Message: "passed through"},
		Outputs: outputs,
	}, nil
}
