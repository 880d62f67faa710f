package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/opst/eoflow/pkg/domain"
)

var ErrTasksRemaining = errors.New("job has unfinished tasks")

// Report applies a status of the task observed out-of-band (e.g., by executors).
//
// The change is validated with domain.CanTransit. Reporting the current status only records exit.
// When the task becomes terminal, its completion hooks are run.
//
// # Returns
//
// - bool: true when the status is changed.
//
// - error: *TransitionError when the change is not allowed, by the status in memory or by the persisted one.
// The task is not changed.
func (c *Commander) Report(ctx context.Context, task *domain.ExecutionTask, observed domain.ExecutionStatus, exit *domain.TaskExit) (bool, error) {
	if !domain.CanTransit(task.Status, observed) {
		return false, &TransitionError{
			Entity: "task", Id: task.Id, Command: "REPORT " + observed.String(),
			Current: task.Status, Allowed: []domain.ExecutionStatus{task.Status},
		}
	}

	if exit != nil && !exit.Equal(task.Exit) {
		if err := c.tasks.SetExit(ctx, task.Id, *exit); err != nil {
			return false, err
		}
		task.Exit = exit
	}

	if task.Status == observed {
		return false, nil
	}
	if err := c.setTaskStatus(ctx, "REPORT "+observed.String(), task, domain.SourcesOf(observed), observed); err != nil {
		return false, err
	}
	return true, nil
}

// ReportOutputs records values produced by the task.
func (c *Commander) ReportOutputs(ctx context.Context, task *domain.ExecutionTask, outputs map[string]string) error {
	if err := c.tasks.SetOutputs(ctx, task.Id, outputs); err != nil {
		return err
	}
	task.Outputs = outputs
	return nil
}

// ReportJob applies a status of the job derived from its tasks.
//
// # Returns
//
// - bool: true when the status is changed.
//
// - error: *TransitionError when the change is not allowed by domain.CanTransit.
// ErrTasksRemaining when derived is terminal but some tasks are not.
func (c *Commander) ReportJob(ctx context.Context, job *domain.ExecutionJob, derived domain.ExecutionStatus) (bool, error) {
	if !domain.CanTransit(job.Status, derived) {
		return false, &TransitionError{
			Entity: "job", Id: job.Id, Command: "REPORT " + derived.String(),
			Current: job.Status, Allowed: []domain.ExecutionStatus{job.Status},
		}
	}
	if job.Status == derived {
		return false, nil
	}
	if derived.Terminal() {
		for _, t := range job.AllTasks() {
			if !t.Status.Terminal() {
				return false, fmt.Errorf("%w: task %s is %s", ErrTasksRemaining, t.Id, t.Status)
			}
		}
	}
	if err := c.setJobStatus(ctx, "REPORT "+derived.String(), job, domain.SourcesOf(derived), derived); err != nil {
		return false, err
	}
	return true, nil
}
