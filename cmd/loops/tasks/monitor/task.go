package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"sort"

	"github.com/opst/eoflow/pkg/command"
	"github.com/opst/eoflow/pkg/domain"
	jobdb "github.com/opst/eoflow/pkg/domain/job/db"
	"github.com/opst/eoflow/pkg/executor"
	"github.com/opst/eoflow/pkg/handler"
	"github.com/opst/eoflow/pkg/loop/recurring"
	"github.com/sirupsen/logrus"
)

// Observer tells progress of workloads. *executor.Manager implements this.
type Observer interface {
	Observe(ctx context.Context, task domain.ExecutionTask) (executor.Observation, error)
}

// exit recorded when a workload has gone away without telling its end.
var missingExit = domain.TaskExit{Code: 255, Message: "workload is missing"}

// initial value for task
func Seed() domain.JobFindQuery {
	return domain.JobFindQuery{
		Status: []domain.ExecutionStatus{domain.QueuedActive, domain.Running},
	}
}

// Task for monitor loop.
//
// For each job in the query:
//
// (1) tasks in QUEUED_ACTIVE or RUNNING with resources are observed, and their progress are reported.
// Outputs of DONE tasks are passed through handlers, then recorded.
//
// (2) groups are reported with the aggregated status of their members.
//
// (3) the job in QUEUED_ACTIVE is reported RUNNING when some of its tasks are RUNNING.
//
// returns:
//
// - bool: true when any status is changed.
func Task(
	logger logrus.FieldLogger,
	jobs jobdb.JobInterface,
	cmd *command.Commander,
	observer Observer,
	outputs *handler.Pipelines[domain.Output],
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

			l := logger.WithField("job", job.Id)
			changed, err := monitorJob(ctx, l, cmd, observer, outputs, job)
			if changed {
				updated = true
			}
			if err != nil {
				return query, updated, err
			}
		}
		return query, updated, nil
	}
}

func monitorJob(
	ctx context.Context,
	logger logrus.FieldLogger,
	cmd *command.Commander,
	observer Observer,
	outputs *handler.Pipelines[domain.Output],
	job *domain.ExecutionJob,
) (bool, error) {
	updated := false

	for _, t := range job.AllTasks() {
		if t.IsGroup() || !t.Status.Active() || t.ResourceId == "" {
			continue
		}
		changed, err := observe(ctx, logger.WithField("task", t.Id), cmd, observer, outputs, t)
		if changed {
			updated = true
		}
		if err != nil {
			return updated, err
		}
	}

	for _, g := range job.OrderedTasks() {
		if !g.IsGroup() || g.Status.Terminal() {
			continue
		}
		agg := domain.AggregateStatus(g.ChildStatuses())
		if agg == domain.Undetermined || agg == g.Status {
			continue
		}
		changed, err := report(logger.WithField("task", g.Id), func() (bool, error) {
			return cmd.Report(ctx, g, agg, nil)
		})
		if changed {
			updated = true
		}
		if err != nil {
			return updated, err
		}
	}

	if job.Status == domain.QueuedActive && anyRunning(job) {
		changed, err := report(logger, func() (bool, error) {
			return cmd.ReportJob(ctx, job, domain.Running)
		})
		if changed {
			updated = true
		}
		if err != nil {
			return updated, err
		}
	}

	return updated, nil
}

func anyRunning(job *domain.ExecutionJob) bool {
	for _, t := range job.AllTasks() {
		if t.Status == domain.Running {
			return true
		}
	}
	return false
}

func observe(
	ctx context.Context,
	logger logrus.FieldLogger,
	cmd *command.Commander,
	observer Observer,
	outputs *handler.Pipelines[domain.Output],
	task *domain.ExecutionTask,
) (bool, error) {
	obs, err := observer.Observe(ctx, *task)
	switch {
	case errors.Is(err, executor.ErrNotObservable):
		return false, nil
	case errors.Is(err, domain.ErrMissing):
		logger.WithError(err).Warn("workload is missing")
		exit := missingExit
		return report(logger, func() (bool, error) {
			return cmd.Report(ctx, task, domain.Failed, &exit)
		})
	case err != nil:
		logger.WithError(err).Error("failed to observe the task")
		return false, nil
	}

	if obs.Status == domain.Done {
		values, err := handleOutputs(ctx, outputs, task.Id, obs.Outputs)
		if err != nil {
			logger.WithError(err).Error("outputs are not acceptable")
			exit := domain.TaskExit{Code: 1, Message: err.Error()}
			if obs.Exit != nil {
				exit.Code = obs.Exit.Code
			}
			return report(logger, func() (bool, error) {
				return cmd.Report(ctx, task, domain.Failed, &exit)
			})
		}
		if err := cmd.ReportOutputs(ctx, task, values); err != nil {
			return false, err
		}
	}

	return report(logger, func() (bool, error) {
		return cmd.Report(ctx, task, obs.Status, obs.Exit)
	})
}

// handleOutputs passes outputs through pipelines of their kinds.
//
// Absolute paths are file outputs. Others are values.
// Kinds without pipelines are kept as they are.
func handleOutputs(
	ctx context.Context,
	pipelines *handler.Pipelines[domain.Output],
	taskId string,
	outputs map[string]string,
) (map[string]string, error) {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	handled := make(map[string]string, len(outputs))
	for _, name := range names {
		o := domain.Output{TaskId: taskId, Name: name, Kind: domain.ValueOutput, Value: outputs[name]}
		if filepath.IsAbs(o.Value) {
			o.Kind = domain.FileOutput
		}

		h, err := pipelines.Apply(ctx, string(o.Kind), o)
		if err != nil && !errors.Is(err, handler.ErrNoHandlerChain) {
			return nil, err
		}
		handled[name] = h.Value
	}
	return handled, nil
}

// report runs a report, and sorts its errors out.
//
// Rejected transitions mean that the entity has been changed by others. They are logged and ignored.
func report(logger logrus.FieldLogger, do func() (bool, error)) (bool, error) {
	changed, err := do()
	var terr *command.TransitionError
	if errors.As(err, &terr) {
		logger.WithError(err).Warn("observed status is not acceptable")
		return false, nil
	}
	if errors.Is(err, command.ErrTasksRemaining) {
		logger.WithError(err).Warn("job can not be closed yet")
		return false, nil
	}
	return changed, err
}
