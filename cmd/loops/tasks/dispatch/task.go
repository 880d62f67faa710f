package dispatch

import (
	"context"
	"errors"

	"github.com/opst/eoflow/pkg/command"
	"github.com/opst/eoflow/pkg/domain"
	jobdb "github.com/opst/eoflow/pkg/domain/job/db"
	"github.com/opst/eoflow/pkg/loop/recurring"
	"github.com/opst/eoflow/pkg/taskutil"
	"github.com/sirupsen/logrus"
)

// Readiness tells which tasks can be started. *taskutil.Utils implements this.
type Readiness interface {
	HaveParentsCompleted(ctx context.Context, job *domain.ExecutionJob, task *domain.ExecutionTask) (bool, error)
	TransferParentOutputs(ctx context.Context, job *domain.ExecutionJob, task *domain.ExecutionTask) (map[string]string, error)
}

// initial value for task
func Seed() domain.JobFindQuery {
	return domain.JobFindQuery{
		Status: []domain.ExecutionStatus{domain.QueuedActive, domain.Running},
	}
}

// Task for dispatch loop.
//
// For each job in the query, it finds UNDETERMINED tasks whose parents have completed.
// When some of the parents have not finished DONE, the task is stopped.
// Otherwise, outputs of the parents are passed to the task and the task is started.
//
// Failures of commands are logged and do not stop the loop. Errors of the persistence layer do.
//
// returns:
//
// - bool: true when any task is started or stopped.
func Task(
	logger logrus.FieldLogger,
	jobs jobdb.JobInterface,
	cmd *command.Commander,
	ready Readiness,
) recurring.Task[domain.JobFindQuery] {
	return func(ctx context.Context, query domain.JobFindQuery) (domain.JobFindQuery, bool, error) {
		jobIds, err := jobs.Find(ctx, query)
		if err != nil {
			return query, false, err
		}

		updated := false
		for _, jobId := range jobIds {
			job, err := jobs.Get(ctx, jobId)
			if errors.Is(err, domain.ErrMissing) {
				continue
			} else if err != nil {
				return query, updated, err
			}
			if !job.Status.Active() {
				continue
			}

			for _, task := range candidates(job) {
				changed, err := dispatch(ctx, logger, cmd, ready, job, task)
				if changed {
					updated = true
				}
				if err != nil {
					return query, updated, err
				}
			}
		}
		return query, updated, nil
	}
}

// candidates returns UNDETERMINED top-level tasks, and UNDETERMINED members of active groups.
func candidates(job *domain.ExecutionJob) []*domain.ExecutionTask {
	found := []*domain.ExecutionTask{}
	for _, t := range job.OrderedTasks() {
		if t.Status == domain.Undetermined {
			found = append(found, t)
			continue
		}
		if !t.IsGroup() || !t.Status.Active() {
			continue
		}
		for i := range t.Children {
			if m := &t.Children[i]; m.Status == domain.Undetermined {
				found = append(found, m)
			}
		}
	}
	return found
}

func dispatch(
	ctx context.Context,
	logger logrus.FieldLogger,
	cmd *command.Commander,
	ready Readiness,
	job *domain.ExecutionJob,
	task *domain.ExecutionTask,
) (bool, error) {
	l := logger.WithFields(logrus.Fields{"job": job.Id, "task": task.Id, "node": task.NodeId})

	completed, err := ready.HaveParentsCompleted(ctx, job, task)
	if err != nil {
		return false, err
	}
	if !completed {
		return false, nil
	}

	if failed := taskutil.FailedParents(job, task); len(failed) != 0 {
		ids := make([]string, 0, len(failed))
		for _, f := range failed {
			ids = append(ids, f.Id)
		}
		l.WithField("parents", ids).Info("parents have not succeeded. stop the task")
		return handle(l, command.TaskStop.ApplyTo(ctx, cmd, task))
	}

	if _, err := ready.TransferParentOutputs(ctx, job, task); err != nil {
		return false, err
	}
	l.Info("parents have succeeded. start the task")
	return handle(l, cmd.Dispatch(ctx, job, task))
}

// handle sorts errors of commands out.
//
// Failures of commands have been recorded in the task, so they are logged and forgotten.
func handle(l logrus.FieldLogger, err error) (bool, error) {
	if err == nil {
		return true, nil
	}

	var terr *command.TransitionError
	var eerr *command.ExecutionError
	switch {
	case errors.As(err, &terr):
		l.WithError(err).Warn("the task has been changed by others")
		return true, nil
	case errors.As(err, &eerr):
		l.WithError(err).Error("failed to dispatch the task")
		return true, nil
	default:
		return false, err
	}
}
