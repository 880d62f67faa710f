package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/opst/eoflow/pkg/command"
	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/notify"
)

func TestReport(t *testing.T) {
	t.Run("it applies an observed status and runs completion hooks", func(t *testing.T) {
		f := newFixture()
		task := &domain.ExecutionTask{Id: "task-A", JobId: "job-1", Status: domain.Running}
		exit := &domain.TaskExit{Code: 0, Message: "ok"}

		changed, err := f.commander.Report(context.Background(), task, domain.Done, exit)
		if err != nil {
			t.Fatal(err)
		}
		if !changed {
			t.Error("not changed")
		}
		if task.Status != domain.Done || f.taskStatus["task-A"] != domain.Done {
			t.Errorf("status: %s", task.Status)
		}
		if f.tasks.Calls.SetExit.Times() != 1 {
			t.Fatalf("exit is not recorded: %+v", f.tasks.Calls.SetExit)
		}
		if recorded := f.tasks.Calls.SetExit.Last().Exit; !recorded.Equal(exit) {
			t.Errorf("recorded exit: %+v", recorded)
		}
		if diff := cmp.Diff([]hookCall{{TaskId: "task-A", Status: domain.Done}}, f.hooks.calls); diff != "" {
			t.Errorf("completion hooks (-want +got):\n%s", diff)
		}
	})

	t.Run("reporting the current status changes nothing", func(t *testing.T) {
		f := newFixture()
		task := &domain.ExecutionTask{Id: "task-A", Status: domain.Running}

		changed, err := f.commander.Report(context.Background(), task, domain.Running, nil)
		if err != nil {
			t.Fatal(err)
		}
		if changed {
			t.Error("changed")
		}
		if f.tasks.Calls.SetStatus.Times() != 0 || len(f.hooks.calls) != 0 {
			t.Error("something happened")
		}
	})

	t.Run("it refuses a status which cannot follow the current one", func(t *testing.T) {
		f := newFixture()
		task := &domain.ExecutionTask{Id: "task-A", Status: domain.Done}

		changed, err := f.commander.Report(context.Background(), task, domain.Running, nil)
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("unexpected error: %v", err)
		}
		if changed || task.Status != domain.Done || f.tasks.Calls.SetStatus.Times() != 0 {
			t.Errorf("task is changed: %s", task.Status)
		}
	})

	t.Run("it refuses when the persisted status has moved on", func(t *testing.T) {
		f := newFixture()
		f.taskStatus["task-A"] = domain.Cancelled
		task := &domain.ExecutionTask{Id: "task-A", JobId: "job-1", Status: domain.Running}

		changed, err := f.commander.Report(context.Background(), task, domain.Done, nil)
		terr := new(command.TransitionError)
		if !errors.As(err, &terr) {
			t.Fatalf("unexpected error: %v", err)
		}
		if terr.Current != domain.Cancelled {
			t.Errorf("current status in error: %s", terr.Current)
		}
		if changed {
			t.Error("changed")
		}
		if f.taskStatus["task-A"] != domain.Cancelled || task.Status != domain.Cancelled {
			t.Errorf("status: persisted = %s, in memory = %s", f.taskStatus["task-A"], task.Status)
		}
		if diff := cmp.Diff(
			[]domain.ExecutionStatus{domain.QueuedActive, domain.Running},
			f.tasks.Calls.SetStatus.Last().From,
		); diff != "" {
			t.Errorf("expected statuses (-want +got):\n%s", diff)
		}
		for _, e := range f.events {
			if e.Topic == notify.TopicTaskStatus {
				t.Errorf("status change is published: %+v", e)
			}
		}
		// the task is terminal anyway: hooks are run for it again, with the persisted status.
		if diff := cmp.Diff([]hookCall{{TaskId: "task-A", Status: domain.Cancelled}}, f.hooks.calls); diff != "" {
			t.Errorf("completion hooks (-want +got):\n%s", diff)
		}
	})
}

func TestReportOutputs(t *testing.T) {
	f := newFixture()
	task := &domain.ExecutionTask{Id: "task-A", Status: domain.Done}
	outputs := map[string]string{"out": "/data/out.tif"}

	if err := f.commander.ReportOutputs(context.Background(), task, outputs); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(outputs, task.Outputs); diff != "" {
		t.Errorf("outputs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(outputs, f.tasks.Calls.SetOutputs.Last().Outputs); diff != "" {
		t.Errorf("persisted outputs (-want +got):\n%s", diff)
	}
}

func TestReportJob(t *testing.T) {
	t.Run("it refuses a terminal status while tasks remain", func(t *testing.T) {
		f := newFixture()
		job := diamondJob(domain.Running, map[string]domain.ExecutionStatus{
			"task-A": domain.Done, "task-B": domain.Done, "task-C": domain.Running,
		})

		changed, err := f.commander.ReportJob(context.Background(), job, domain.Done)
		if !errors.Is(err, command.ErrTasksRemaining) {
			t.Errorf("unexpected error: %v", err)
		}
		if changed || job.Status != domain.Running || f.jobs.Calls.SetStatus.Times() != 0 {
			t.Errorf("job is changed: %s", job.Status)
		}
	})

	t.Run("it completes the job when all tasks are done", func(t *testing.T) {
		f := newFixture()
		job := diamondJob(domain.Running, map[string]domain.ExecutionStatus{
			"task-A": domain.Done, "task-B": domain.Done, "task-C": domain.Done,
		})

		changed, err := f.commander.ReportJob(context.Background(), job, domain.Done)
		if err != nil {
			t.Fatal(err)
		}
		if !changed || f.jobStatus["job-1"] != domain.Done {
			t.Errorf("job is not done: %s", f.jobStatus["job-1"])
		}
	})

	t.Run("it accepts a non-terminal status", func(t *testing.T) {
		f := newFixture()
		job := diamondJob(domain.QueuedActive, map[string]domain.ExecutionStatus{"task-A": domain.Running})

		changed, err := f.commander.ReportJob(context.Background(), job, domain.Running)
		if err != nil {
			t.Fatal(err)
		}
		if !changed || job.Status != domain.Running {
			t.Errorf("job: %s", job.Status)
		}
	})

	t.Run("it does not overwrite a terminal status persisted by others", func(t *testing.T) {
		f := newFixture()
		f.jobStatus["job-1"] = domain.Cancelled
		job := diamondJob(domain.Running, map[string]domain.ExecutionStatus{
			"task-A": domain.Done, "task-B": domain.Done, "task-C": domain.Done,
		})

		changed, err := f.commander.ReportJob(context.Background(), job, domain.Done)
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("unexpected error: %v", err)
		}
		if changed || f.jobStatus["job-1"] != domain.Cancelled || job.Status != domain.Cancelled {
			t.Errorf("job: persisted = %s, in memory = %s", f.jobStatus["job-1"], job.Status)
		}
	})
}
