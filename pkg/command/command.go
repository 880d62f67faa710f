// Package command changes statuses of jobs and tasks.
//
// A command is defined by statuses it can be applied to, the status it sets, and an action.
// Applying a command on an entity in other statuses fails with *TransitionError.
// When the action fails, the entity becomes FAILED and the error is returned as *ExecutionError.
// There are no retries here.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/opst/eoflow/pkg/domain"
	jobdb "github.com/opst/eoflow/pkg/domain/job/db"
	taskdb "github.com/opst/eoflow/pkg/domain/task/db"
	"github.com/opst/eoflow/pkg/executor"
	"github.com/opst/eoflow/pkg/notify"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoTasks     = errors.New("job has no tasks")
	ErrNoRootTasks = errors.New("job has no root tasks")
	ErrEmptyGroup  = errors.New("group has no members")
)

// TransitionError tells that a command is applied on an entity in a status which the command does not accept.
type TransitionError struct {
	Entity  string // "job" or "task"
	Id      string
	Command string
	Current domain.ExecutionStatus
	Allowed []domain.ExecutionStatus
}

func (e *TransitionError) Error() string {
	allowed := make([]string, 0, len(e.Allowed))
	for _, a := range e.Allowed {
		allowed = append(allowed, a.String())
	}
	return fmt.Sprintf(
		"%s: %s %s is %s, but %s requires one of [%s]",
		domain.ErrInvalidTransition, e.Entity, e.Id, e.Current, e.Command, strings.Join(allowed, ", "),
	)
}

func (e *TransitionError) Unwrap() error {
	return domain.ErrInvalidTransition
}

// ExecutionError tells that an action of a command has failed, and the entity is made FAILED.
type ExecutionError struct {
	Entity  string
	Id      string
	Command string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s on %s %s failed: %s", e.Command, e.Entity, e.Id, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Executors runs workloads of tasks. *executor.Manager implements this.
type Executors interface {
	Execute(ctx context.Context, task domain.ExecutionTask) (executor.Receipt, error)
	Stop(ctx context.Context, task domain.ExecutionTask) (executor.Receipt, error)
	Suspend(ctx context.Context, task domain.ExecutionTask) (executor.Receipt, error)
	Resume(ctx context.Context, task domain.ExecutionTask) (executor.Receipt, error)
}

// CompletionHooks are run when tasks reach terminal statuses.
//
// They can be run more than once for a task.
type CompletionHooks interface {
	Run(ctx context.Context, taskId string, status domain.ExecutionStatus) error
}

type noHooks struct{}

func (noHooks) Run(context.Context, string, domain.ExecutionStatus) error { return nil }

// Commander bundles collaborators of commands.
type Commander struct {
	jobs      jobdb.JobInterface
	tasks     taskdb.TaskInterface
	executors Executors
	sink      notify.Sink
	hooks     CompletionHooks
	logger    logrus.FieldLogger
}

type Option func(*Commander) *Commander

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Commander) *Commander {
		c.logger = logger
		return c
	}
}

func WithCompletionHooks(hooks CompletionHooks) Option {
	return func(c *Commander) *Commander {
		c.hooks = hooks
		return c
	}
}

func New(
	jobs jobdb.JobInterface,
	tasks taskdb.TaskInterface,
	executors Executors,
	sink notify.Sink,
	options ...Option,
) *Commander {
	if sink == nil {
		sink = notify.Null()
	}
	logger := logrus.New()
	c := &Commander{
		jobs:      jobs,
		tasks:     tasks,
		executors: executors,
		sink:      sink,
		hooks:     noHooks{},
		logger:    logger,
	}
	for _, o := range options {
		c = o(c)
	}
	return c
}

func (c *Commander) Jobs() jobdb.JobInterface {
	return c.jobs
}

func (c *Commander) Tasks() taskdb.TaskInterface {
	return c.tasks
}

// setJobStatus persists the status of the job when it is still in one of from.
//
// When the persisted status is not in from, job.Status is refreshed with it
// and *TransitionError is returned.
func (c *Commander) setJobStatus(
	ctx context.Context, command string, job *domain.ExecutionJob,
	from []domain.ExecutionStatus, status domain.ExecutionStatus,
) error {
	if err := c.jobs.SetStatus(ctx, job.Id, from, status); err != nil {
		mismatch := new(domain.StatusMismatch)
		if !errors.As(err, &mismatch) {
			return err
		}
		job.Status = mismatch.Current
		return &TransitionError{
			Entity: "job", Id: job.Id, Command: command,
			Current: mismatch.Current, Allowed: from,
		}
	}
	previous := job.Status
	job.Status = status
	c.logger.WithFields(logrus.Fields{
		"job": job.Id, "from": previous, "to": status,
	}).Info("job status changed")
	c.sink.Send(job.Context.Principal, notify.TopicJobStatus, notify.StatusChange{
		JobId: job.Id, From: previous.String(), To: status.String(),
	})
	return nil
}

// failJob makes the job FAILED, as far as possible.
func (c *Commander) failJob(ctx context.Context, job *domain.ExecutionJob, cause error) {
	c.sink.Send(job.Context.Principal, notify.TopicJobError, notify.ErrorReport{
		JobId: job.Id, Error: cause.Error(),
	})
	if job.Status.Terminal() {
		return
	}
	if err := c.setJobStatus(ctx, "FAIL", job, domain.NonTerminalStatuses(), domain.Failed); err != nil {
		c.logger.WithError(err).WithField("job", job.Id).Error("failed to mark job as failed")
	}
}

// setTaskStatus persists the status of the task when it is still in one of from.
//
// When the task becomes terminal, completion hooks are run.
//
// When the persisted status is not in from, task.Status is refreshed with it
// and *TransitionError is returned.
// Hooks are run also then if the persisted status is terminal, because
// the process which has finished the task may have gone before running them.
func (c *Commander) setTaskStatus(
	ctx context.Context, command string, task *domain.ExecutionTask,
	from []domain.ExecutionStatus, status domain.ExecutionStatus,
) error {
	if err := c.tasks.SetStatus(ctx, task.Id, from, status); err != nil {
		mismatch := new(domain.StatusMismatch)
		if !errors.As(err, &mismatch) {
			return err
		}
		task.Status = mismatch.Current
		if mismatch.Current.Terminal() {
			c.runHooks(ctx, task, mismatch.Current)
		}
		return &TransitionError{
			Entity: "task", Id: task.Id, Command: command,
			Current: mismatch.Current, Allowed: from,
		}
	}
	previous := task.Status
	task.Status = status
	c.logger.WithFields(logrus.Fields{
		"job": task.JobId, "task": task.Id, "node": task.NodeId, "from": previous, "to": status,
	}).Info("task status changed")
	c.sink.Send(task.Context.Principal, notify.TopicTaskStatus, notify.StatusChange{
		JobId: task.JobId, TaskId: task.Id, NodeId: task.NodeId,
		From: previous.String(), To: status.String(),
	})
	if status.Terminal() {
		c.runHooks(ctx, task, status)
	}
	return nil
}

func (c *Commander) runHooks(ctx context.Context, task *domain.ExecutionTask, status domain.ExecutionStatus) {
	if err := c.hooks.Run(ctx, task.Id, status); err != nil {
		c.logger.WithError(err).WithField("task", task.Id).Error("completion hook failed")
	}
}

// failTask makes the task FAILED, as far as possible.
func (c *Commander) failTask(ctx context.Context, task *domain.ExecutionTask, cause error) {
	c.sink.Send(task.Context.Principal, notify.TopicJobError, notify.ErrorReport{
		JobId: task.JobId, TaskId: task.Id, Error: cause.Error(),
	})
	if task.Status.Terminal() {
		return
	}
	if err := c.setTaskStatus(ctx, "FAIL", task, domain.NonTerminalStatuses(), domain.Failed); err != nil {
		c.logger.WithError(err).WithField("task", task.Id).Error("failed to mark task as failed")
	}
}
