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

func TestJobStart(t *testing.T) {
	t.Run("it queues the job and starts root tasks only", func(t *testing.T) {
		f := newFixture()
		job := diamondJob(domain.Undetermined, nil)

		// the job status should be persisted before tasks are touched
		f.tasks.Impl.SetContext = func(context.Context, string, domain.ExecutionContext) error {
			if f.jobStatus["job-1"] != domain.QueuedActive {
				t.Errorf("job is not persisted before tasks: %s", f.jobStatus["job-1"])
			}
			return nil
		}

		if err := command.JobStart.ApplyTo(context.Background(), f.commander, job); err != nil {
			t.Fatal(err)
		}

		if job.Status != domain.QueuedActive || f.jobStatus["job-1"] != domain.QueuedActive {
			t.Errorf("job status: %s (persisted: %s)", job.Status, f.jobStatus["job-1"])
		}
		if diff := cmp.Diff([]call{{Op: "execute", TaskId: "task-A"}}, f.executors.calls); diff != "" {
			t.Errorf("dispatched (-want +got):\n%s", diff)
		}

		root := job.Task("task-A")
		if root.Status != domain.QueuedActive || f.taskStatus["task-A"] != domain.QueuedActive {
			t.Errorf("root status: %s (persisted: %s)", root.Status, f.taskStatus["task-A"])
		}
		if root.Context != job.Context {
			t.Errorf("context is not attached: %+v", root.Context)
		}
		if f.tasks.Calls.SetContext.Times() != 1 || f.tasks.Calls.SetContext.Last().TaskId != "task-A" {
			t.Errorf("context is not persisted: %+v", f.tasks.Calls.SetContext)
		}
		if root.Executor != "fake" || root.ResourceId != "res-task-A" {
			t.Errorf("receipt is not recorded: %+v", root)
		}
		for _, id := range []string{"task-B", "task-C"} {
			if s := job.Task(id).Status; s != domain.Undetermined {
				t.Errorf("%s should not be started: %s", id, s)
			}
		}

		if len(f.events) == 0 || f.events[0].Topic != notify.TopicJobStatus {
			t.Errorf("job status is not published first: %+v", f.events)
		}
	})

	t.Run("when the job has no tasks, it fails the job", func(t *testing.T) {
		f := newFixture()
		job := &domain.ExecutionJob{Id: "job-1", Status: domain.Undetermined}

		err := command.JobStart.ApplyTo(context.Background(), f.commander, job)
		if !errors.Is(err, command.ErrNoTasks) {
			t.Errorf("unexpected error: %v", err)
		}
		if eerr := new(command.ExecutionError); !errors.As(err, &eerr) {
			t.Errorf("error is not ExecutionError: %T", err)
		}
		if job.Status != domain.Failed || f.jobStatus["job-1"] != domain.Failed {
			t.Errorf("job is not failed: %s", job.Status)
		}
	})

	t.Run("when the job has no root tasks, it fails the job", func(t *testing.T) {
		f := newFixture()
		g, err := domain.NewGraph([]domain.WorkflowNodeDescriptor{
			{Id: "A"},
			{Id: "B", IncomingLinks: []domain.ComponentLink{link("A", "B")}},
		})
		if err != nil {
			t.Fatal(err)
		}
		// only a non-root task is instantiated
		job := &domain.ExecutionJob{
			Id: "job-1", Status: domain.Undetermined, Graph: g,
			Tasks: []domain.ExecutionTask{{Id: "task-B", NodeId: "B"}},
		}

		if err := command.JobStart.ApplyTo(context.Background(), f.commander, job); !errors.Is(err, command.ErrNoRootTasks) {
			t.Errorf("unexpected error: %v", err)
		}
		if job.Status != domain.Failed {
			t.Errorf("job is not failed: %s", job.Status)
		}
	})

	t.Run("when an executor fails, the task and the job fail", func(t *testing.T) {
		f := newFixture()
		expectedErr := errors.New("fake error")
		f.executors.fail["task-A"] = expectedErr
		job := diamondJob(domain.Undetermined, nil)

		err := command.JobStart.ApplyTo(context.Background(), f.commander, job)
		if !errors.Is(err, expectedErr) {
			t.Errorf("unexpected error: %v", err)
		}
		if s := job.Task("task-A").Status; s != domain.Failed {
			t.Errorf("task is not failed: %s", s)
		}
		if f.taskStatus["task-A"] != domain.Failed || f.jobStatus["job-1"] != domain.Failed {
			t.Errorf("failure is not persisted: task=%s, job=%s", f.taskStatus["task-A"], f.jobStatus["job-1"])
		}

		reported := false
		for _, e := range f.events {
			if e.Topic == notify.TopicJobError {
				reported = true
			}
		}
		if !reported {
			t.Error("error is not published")
		}
	})
}

func TestJobCommand_InvalidTransition(t *testing.T) {
	all := []domain.ExecutionStatus{
		domain.Undetermined, domain.QueuedActive, domain.Running, domain.Suspended,
		domain.Done, domain.Failed, domain.Cancelled,
	}

	for _, c := range []command.JobCommand{command.JobStart, command.JobStop, command.JobSuspend, command.JobResume} {
		for _, status := range all {
			if status.In(c.From()...) {
				continue
			}
			t.Run(c.String()+" on "+status.String(), func(t *testing.T) {
				f := newFixture()
				job := diamondJob(status, nil)

				err := c.ApplyTo(context.Background(), f.commander, job)

				terr := new(command.TransitionError)
				if !errors.As(err, &terr) {
					t.Fatalf("unexpected error: %v", err)
				}
				if !errors.Is(err, domain.ErrInvalidTransition) {
					t.Errorf("not ErrInvalidTransition: %v", err)
				}
				if job.Status != status {
					t.Errorf("job status is changed: %s -> %s", status, job.Status)
				}
				if f.jobs.Calls.SetStatus.Times() != 0 || f.tasks.Calls.SetStatus.Times() != 0 {
					t.Error("something is persisted")
				}
				if len(f.executors.calls) != 0 {
					t.Errorf("executors are called: %+v", f.executors.calls)
				}
			})
		}
	}
}

func TestJobStop(t *testing.T) {
	f := newFixture()
	job := diamondJob(domain.Running, map[string]domain.ExecutionStatus{
		"task-A": domain.Done,
		"task-B": domain.Running,
		"task-C": domain.Undetermined,
	})

	if err := command.JobStop.ApplyTo(context.Background(), f.commander, job); err != nil {
		t.Fatal(err)
	}

	if job.Status != domain.Cancelled {
		t.Errorf("job: %s", job.Status)
	}
	if diff := cmp.Diff([]call{{Op: "stop", TaskId: "task-B"}}, f.executors.calls); diff != "" {
		t.Errorf("dispatched (-want +got):\n%s", diff)
	}
	want := map[string]domain.ExecutionStatus{
		"task-A": domain.Done,
		"task-B": domain.Cancelled,
		"task-C": domain.Cancelled,
	}
	for id, s := range want {
		if got := job.Task(id).Status; got != s {
			t.Errorf("%s: %s, expected %s", id, got, s)
		}
	}
	if diff := cmp.Diff(
		[]hookCall{{TaskId: "task-B", Status: domain.Cancelled}, {TaskId: "task-C", Status: domain.Cancelled}},
		f.hooks.calls,
	); diff != "" {
		t.Errorf("completion hooks (-want +got):\n%s", diff)
	}
}

func TestJobSuspendAndResume(t *testing.T) {
	f := newFixture()
	job := diamondJob(domain.Running, map[string]domain.ExecutionStatus{
		"task-A": domain.Done,
		"task-B": domain.Running,
		"task-C": domain.QueuedActive,
	})

	if err := command.JobSuspend.ApplyTo(context.Background(), f.commander, job); err != nil {
		t.Fatal(err)
	}
	if job.Status != domain.Suspended {
		t.Errorf("job: %s", job.Status)
	}
	for _, id := range []string{"task-B", "task-C"} {
		if s := job.Task(id).Status; s != domain.Suspended {
			t.Errorf("%s: %s", id, s)
		}
	}

	if err := command.JobResume.ApplyTo(context.Background(), f.commander, job); err != nil {
		t.Fatal(err)
	}
	if job.Status != domain.QueuedActive {
		t.Errorf("job: %s", job.Status)
	}
	for _, id := range []string{"task-B", "task-C"} {
		if s := job.Task(id).Status; s != domain.QueuedActive {
			t.Errorf("%s: %s", id, s)
		}
	}

	want := []call{
		{Op: "suspend", TaskId: "task-B"},
		{Op: "suspend", TaskId: "task-C"},
		{Op: "resume", TaskId: "task-B"},
		{Op: "resume", TaskId: "task-C"},
	}
	if diff := cmp.Diff(want, f.executors.calls); diff != "" {
		t.Errorf("dispatched (-want +got):\n%s", diff)
	}
}

func TestAsJobCommand(t *testing.T) {
	for _, s := range []string{"start", "STOP", "Suspend", "resume"} {
		if _, err := command.AsJobCommand(s); err != nil {
			t.Errorf("%s: %v", s, err)
		}
	}
	if _, err := command.AsJobCommand("restart"); err == nil {
		t.Error("unknown command is accepted")
	}
}

func TestCommander_Dispatch(t *testing.T) {
	t.Run("it starts the task in the context of the job", func(t *testing.T) {
		f := newFixture()
		job := diamondJob(domain.Running, map[string]domain.ExecutionStatus{"task-A": domain.Done})
		task := job.Task("task-B")

		if err := f.commander.Dispatch(context.Background(), job, task); err != nil {
			t.Fatal(err)
		}

		if task.Status != domain.QueuedActive {
			t.Errorf("status: %s", task.Status)
		}
		if task.Context != job.Context {
			t.Errorf("context: %+v", task.Context)
		}
		if diff := cmp.Diff([]call{{Op: "execute", TaskId: "task-B"}}, f.executors.calls); diff != "" {
			t.Errorf("dispatched (-want +got):\n%s", diff)
		}
	})

	t.Run("it does not touch context of tasks which can not be started", func(t *testing.T) {
		f := newFixture()
		job := diamondJob(domain.Running, map[string]domain.ExecutionStatus{
			"task-A": domain.Done, "task-B": domain.Cancelled,
		})

		err := f.commander.Dispatch(context.Background(), job, job.Task("task-B"))

		var terr *command.TransitionError
		if !errors.As(err, &terr) {
			t.Fatalf("error: %v", err)
		}
		if f.tasks.Calls.SetContext.Times() != 0 {
			t.Errorf("context is changed: %+v", f.tasks.Calls.SetContext)
		}
		if len(f.executors.calls) != 0 {
			t.Errorf("dispatched: %+v", f.executors.calls)
		}
	})
}

func TestCommander_Apply(t *testing.T) {
	f := newFixture()
	job := diamondJob(domain.Running, nil)

	if err := f.commander.Apply(context.Background(), command.JobSuspend, job); err != nil {
		t.Fatal(err)
	}
	if job.Status != domain.Suspended || f.jobStatus["job-1"] != domain.Suspended {
		t.Errorf("job status: %s (persisted: %s)", job.Status, f.jobStatus["job-1"])
	}

	err := f.commander.Apply(context.Background(), command.JobStart, job)
	if te := new(command.TransitionError); !errors.As(err, &te) {
		t.Errorf("expected TransitionError, but %v", err)
	}
}
