package command

import (
	"context"
	"fmt"

	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/executor"
)

type TaskCommand string

const (
	TaskStart   TaskCommand = "START"
	TaskStop    TaskCommand = "STOP"
	TaskSuspend TaskCommand = "SUSPEND"
	TaskResume  TaskCommand = "RESUME"
)

func (c TaskCommand) String() string {
	return string(c)
}

// From returns statuses which the command can be applied to.
func (c TaskCommand) From() []domain.ExecutionStatus {
	switch c {
	case TaskStart:
		return []domain.ExecutionStatus{domain.Undetermined}
	case TaskStop:
		return []domain.ExecutionStatus{domain.Undetermined, domain.QueuedActive, domain.Running}
	case TaskSuspend:
		return []domain.ExecutionStatus{domain.QueuedActive, domain.Running}
	case TaskResume:
		return []domain.ExecutionStatus{domain.Suspended}
	default:
		return nil
	}
}

// To returns the status which the command sets.
func (c TaskCommand) To() domain.ExecutionStatus {
	switch c {
	case TaskStart, TaskResume:
		return domain.QueuedActive
	case TaskStop:
		return domain.Cancelled
	case TaskSuspend:
		return domain.Suspended
	default:
		return ""
	}
}

// ApplyTo changes the status of the task and performs the action of the command.
//
// For group tasks, START starts the first member only, with the context of the group.
// STOP, SUSPEND and RESUME are applied to every member in a status which the command accepts.
//
// # Returns
//
// - error: *TransitionError when the task is not in From().
// Then, the task is made FAILED unless it is terminal already.
// When another updater has changed the persisted status first, *TransitionError is returned
// and the task is left as that updater made it.
// *ExecutionError when the action fails. The task is made FAILED.
// Other errors come from the persistence layer.
func (c TaskCommand) ApplyTo(ctx context.Context, cmd *Commander, task *domain.ExecutionTask) error {
	if !task.Status.In(c.From()...) {
		terr := &TransitionError{
			Entity: "task", Id: task.Id, Command: c.String(),
			Current: task.Status, Allowed: c.From(),
		}
		cmd.failTask(ctx, task, terr)
		return terr
	}

	previous := task.Status
	if err := cmd.setTaskStatus(ctx, c.String(), task, c.From(), c.To()); err != nil {
		return err
	}

	if err := c.act(ctx, cmd, task, previous); err != nil {
		cmd.failTask(ctx, task, err)
		return &ExecutionError{Entity: "task", Id: task.Id, Command: c.String(), Err: err}
	}
	return nil
}

func (c TaskCommand) act(ctx context.Context, cmd *Commander, task *domain.ExecutionTask, previous domain.ExecutionStatus) error {
	if task.IsGroup() {
		return c.actOnGroup(ctx, cmd, task)
	}

	var op func(context.Context, domain.ExecutionTask) (executor.Receipt, error)
	switch c {
	case TaskStart:
		op = cmd.executors.Execute
	case TaskStop:
		if previous == domain.Undetermined {
			// nothing has been dispatched.
			return nil
		}
		op = cmd.executors.Stop
	case TaskSuspend:
		op = cmd.executors.Suspend
	case TaskResume:
		op = cmd.executors.Resume
	default:
		return fmt.Errorf("unknown task command: %s", c)
	}

	receipt, err := op(ctx, *task)
	if err != nil {
		return err
	}

	if c != TaskStart {
		return nil
	}
	if err := cmd.tasks.SetResource(ctx, task.Id, receipt.Executor, receipt.ResourceId); err != nil {
		return err
	}
	task.Executor = receipt.Executor
	task.ResourceId = receipt.ResourceId
	return nil
}

func (c TaskCommand) actOnGroup(ctx context.Context, cmd *Commander, group *domain.ExecutionTask) error {
	if c == TaskStart {
		if len(group.Children) == 0 {
			return ErrEmptyGroup
		}
		first := &group.Children[0]
		if err := attachContext(ctx, cmd, first, group.Context); err != nil {
			return err
		}
		return TaskStart.ApplyTo(ctx, cmd, first)
	}

	members := make([]*domain.ExecutionTask, 0, len(group.Children))
	for i := range group.Children {
		members = append(members, &group.Children[i])
	}
	return fanOut(ctx, cmd, members, c, c.From()...)
}
