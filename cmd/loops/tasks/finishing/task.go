package finishing

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

// initial value for task
func Seed() domain.JobFindQuery {
	return domain.JobFindQuery{
		// statuses of the target jobs for finishing
		Status: []domain.ExecutionStatus{domain.QueuedActive, domain.Running},
	}
}

// Outcome derives the terminal status of a job from its top-level tasks.
//
// DONE when all are DONE, FAILED when any is FAILED, otherwise CANCELLED.
func Outcome(job *domain.ExecutionJob) domain.ExecutionStatus {
	statuses := make([]domain.ExecutionStatus, 0, len(job.Tasks))
	for _, t := range job.Tasks {
		statuses = append(statuses, t.Status)
	}
	return domain.AggregateStatus(statuses)
}

// Task for finishing loop.
//
//	Identify jobs whose tasks are all terminal, and close them.
//
// return:
//
// - task: let the job finished (DONE, FAILED or CANCELLED, see Outcome) and
// update job status.
func Task(
	logger logrus.FieldLogger,
	jobs jobdb.JobInterface,
	cmd *command.Commander,
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

			if !job.Status.Active() || !taskutil.HaveAllTasksCompleted(job) {
				continue
			}

			l := logger.WithField("job", job.Id)
			outcome := Outcome(job)
			changed, err := cmd.ReportJob(ctx, job, outcome)

			var terr *command.TransitionError
			switch {
			case errors.As(err, &terr), errors.Is(err, command.ErrTasksRemaining):
				// some members of groups are still running. wait for the next cycle.
				l.WithError(err).Warn("job can not be closed yet")
				continue
			case err != nil:
				return query, updated, err
			}

			if changed {
				l.WithField("status", outcome).Info("job is closed")
				updated = true
			}
		}
		return query, updated, nil
	}
}
