package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/opst/eoflow/pkg/domain"
)

type JobCommand string

const (
	JobStart   JobCommand = "START"
	JobStop    JobCommand = "STOP"
	JobSuspend JobCommand = "SUSPEND"
	JobResume  JobCommand = "RESUME"
)

func AsJobCommand(s string) (JobCommand, error) {
	switch c := JobCommand(strings.ToUpper(s)); c {
	case JobStart, JobStop, JobSuspend, JobResume:
		return c, nil
	default:
		return "", fmt.Errorf("unknown job command: %s", s)
	}
}

func (c JobCommand) String() string {
	return string(c)
}

// From returns statuses which the command can be applied to.
func (c JobCommand) From() []domain.ExecutionStatus {
	switch c {
	case JobStart:
		return []domain.ExecutionStatus{domain.Undetermined}
	case JobStop:
		return []domain.ExecutionStatus{domain.Undetermined, domain.QueuedActive, domain.Running}
	case JobSuspend:
		return []domain.ExecutionStatus{domain.Running}
	case JobResume:
		return []domain.ExecutionStatus{domain.Suspended}
	default:
		return nil
	}
}

// To returns the status which the command sets.
func (c JobCommand) To() domain.ExecutionStatus {
	switch c {
	case JobStart, JobResume:
		return domain.QueuedActive
	case JobStop:
		return domain.Cancelled
	case JobSuspend:
		return domain.Suspended
	default:
		return ""
	}
}

// ApplyTo changes the status of the job and performs the action of the command.
//
// The new status is persisted before the action.
//
// # Returns
//
// - error: *TransitionError when the job is not in From(). The job is not changed.
// *ExecutionError when the action fails. The job is made FAILED.
// Other errors come from the persistence layer.
func (c JobCommand) ApplyTo(ctx context.Context, cmd *Commander, job *domain.ExecutionJob) error {
	if !job.Status.In(c.From()...) {
		return &TransitionError{
			Entity: "job", Id: job.Id, Command: c.String(),
			Current: job.Status, Allowed: c.From(),
		}
	}

	if err := cmd.setJobStatus(ctx, c.String(), job, c.From(), c.To()); err != nil {
		return err
	}

	if err := c.act(ctx, cmd, job); err != nil {
		cmd.failJob(ctx, job, err)
		return &ExecutionError{Entity: "job", Id: job.Id, Command: c.String(), Err: err}
	}
	return nil
}

func (c JobCommand) act(ctx context.Context, cmd *Commander, job *domain.ExecutionJob) error {
	switch c {
	case JobStart:
		return startJob(ctx, cmd, job)
	case JobStop:
		return fanOut(ctx, cmd, job.OrderedTasks(), TaskStop, domain.Running, domain.QueuedActive, domain.Undetermined)
	case JobSuspend:
		return fanOut(ctx, cmd, job.OrderedTasks(), TaskSuspend, domain.Running, domain.QueuedActive)
	case JobResume:
		return fanOut(ctx, cmd, job.OrderedTasks(), TaskResume, domain.Suspended)
	default:
		return fmt.Errorf("unknown job command: %s", c)
	}
}

func startJob(ctx context.Context, cmd *Commander, job *domain.ExecutionJob) error {
	if len(job.Tasks) == 0 {
		return ErrNoTasks
	}
	roots := job.RootTasks()
	if len(roots) == 0 {
		return ErrNoRootTasks
	}

	for _, root := range roots {
		if err := attachContext(ctx, cmd, root, job.Context); err != nil {
			return err
		}
		if err := TaskStart.ApplyTo(ctx, cmd, root); err != nil {
			return err
		}
	}
	return nil
}

// fanOut applies the task command on tasks in statuses, in order. It stops at the first error.
//
// Tasks which have left statuses in the meantime are skipped.
func fanOut(
	ctx context.Context, cmd *Commander, tasks []*domain.ExecutionTask,
	tc TaskCommand, statuses ...domain.ExecutionStatus,
) error {
	for _, t := range tasks {
		if !t.Status.In(statuses...) {
			continue
		}
		if err := tc.ApplyTo(ctx, cmd, t); err != nil {
			if terr := new(TransitionError); errors.As(err, &terr) && terr.Id == t.Id {
				cmd.logger.WithError(err).WithField("task", t.Id).Warn("task has been changed concurrently. skipped")
				continue
			}
			return err
		}
	}
	return nil
}

func attachContext(ctx context.Context, cmd *Commander, task *domain.ExecutionTask, execCtx domain.ExecutionContext) error {
	if task.Context == execCtx {
		return nil
	}
	if err := cmd.tasks.SetContext(ctx, task.Id, execCtx); err != nil {
		return err
	}
	task.Context = execCtx
	return nil
}

// Dispatch starts a task of the job which has been waiting for its parents.
//
// The task runs in the execution context of the job, as root tasks do.
//
// # Returns
//
// - error: same as TaskStart.ApplyTo.
func (c *Commander) Dispatch(ctx context.Context, job *domain.ExecutionJob, task *domain.ExecutionTask) error {
	if task.Status.In(TaskStart.From()...) {
		if err := attachContext(ctx, c, task, job.Context); err != nil {
			return err
		}
	}
	return TaskStart.ApplyTo(ctx, c, task)
}

// Apply is c.ApplyTo(ctx, cmd, job).
func (cmd *Commander) Apply(ctx context.Context, c JobCommand, job *domain.ExecutionJob) error {
	return c.ApplyTo(ctx, cmd, job)
}
