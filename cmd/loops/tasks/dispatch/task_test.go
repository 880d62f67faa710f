package dispatch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/opst/eoflow/cmd/loops/tasks/dispatch"
	"github.com/opst/eoflow/cmd/loops/tasks/internal/fixture"
	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/taskutil"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestSeed(t *testing.T) {
	want := []domain.ExecutionStatus{domain.QueuedActive, domain.Running}
	if diff := cmp.Diff(want, dispatch.Seed().Status); diff != "" {
		t.Errorf("seed (-want +got):\n%s", diff)
	}
}

func TestTask(t *testing.T) {
	type When struct {
		job *domain.ExecutionJob

		// errors of executors by task id
		fail map[string]error
	}
	type Then struct {
		updated bool

		// persisted statuses of tasks
		statuses map[string]domain.ExecutionStatus

		calls []fixture.Call

		// inputs persisted, by task id
		inputs map[string]map[string]string
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			ctx := context.Background()
			f := fixture.New(when.job)
			for k, v := range when.fail {
				f.Executors.Fail[k] = v
			}
			inputs := map[string]map[string]string{}
			f.Tasks.Impl.SetInputs = func(_ context.Context, taskId string, in map[string]string) error {
				inputs[taskId] = in
				return nil
			}

			logger, _ := logtest.NewNullLogger()
			utils := taskutil.New(f.Tasks, nil, logger)
			testee := dispatch.Task(logger, f.Jobs, f.Commander, utils)

			query, updated, err := testee(ctx, dispatch.Seed())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(dispatch.Seed(), query); diff != "" {
				t.Errorf("query (-want +got):\n%s", diff)
			}
			if updated != then.updated {
				t.Errorf("updated: expected %v, got %v", then.updated, updated)
			}
			if diff := cmp.Diff(then.statuses, f.TaskStatus); diff != "" {
				t.Errorf("statuses (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(then.calls, f.Executors.Calls); diff != "" {
				t.Errorf("executor calls (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(then.inputs, inputs); diff != "" {
				t.Errorf("inputs (-want +got):\n%s", diff)
			}
		}
	}

	succeeded := func() *domain.ExecutionJob {
		job := fixture.DiamondJob("job-1", domain.Running, map[string]domain.ExecutionStatus{
			"task-A": domain.Done,
		})
		job.Task("task-A").Outputs = map[string]string{"out": "/workspace/a.tif"}
		return job
	}

	t.Run("when the parent is done, children are started with outputs of it", theory(
		When{job: succeeded()},
		Then{
			updated: true,
			statuses: map[string]domain.ExecutionStatus{
				"task-B": domain.QueuedActive,
				"task-C": domain.QueuedActive,
			},
			calls: []fixture.Call{
				{Op: "execute", TaskId: "task-B"},
				{Op: "execute", TaskId: "task-C"},
			},
			inputs: map[string]map[string]string{
				"task-B": {"in": "/workspace/a.tif"},
				"task-C": {"in": "/workspace/a.tif"},
			},
		},
	))

	t.Run("when the parent has failed, children are cancelled without executors", theory(
		When{job: fixture.DiamondJob("job-1", domain.Running, map[string]domain.ExecutionStatus{
			"task-A": domain.Failed,
		})},
		Then{
			updated: true,
			statuses: map[string]domain.ExecutionStatus{
				"task-B": domain.Cancelled,
				"task-C": domain.Cancelled,
			},
			calls:  nil,
			inputs: map[string]map[string]string{},
		},
	))

	t.Run("when the parent is running, nothing happens", theory(
		When{job: fixture.DiamondJob("job-1", domain.Running, map[string]domain.ExecutionStatus{
			"task-A": domain.Running,
		})},
		Then{
			updated:  false,
			statuses: map[string]domain.ExecutionStatus{},
			calls:    nil,
			inputs:   map[string]map[string]string{},
		},
	))

	t.Run("when an executor fails, the task is failed and others go on", theory(
		When{
			job:  succeeded(),
			fail: map[string]error{"task-B": errors.New("fake error")},
		},
		Then{
			updated: true,
			statuses: map[string]domain.ExecutionStatus{
				"task-B": domain.Failed,
				"task-C": domain.QueuedActive,
			},
			calls: []fixture.Call{
				{Op: "execute", TaskId: "task-B"},
				{Op: "execute", TaskId: "task-C"},
			},
			inputs: map[string]map[string]string{
				"task-B": {"in": "/workspace/a.tif"},
				"task-C": {"in": "/workspace/a.tif"},
			},
		},
	))

	t.Run("when the job is suspended, nothing happens", theory(
		When{job: func() *domain.ExecutionJob {
			j := succeeded()
			j.Status = domain.Suspended
			return j
		}()},
		Then{
			updated:  false,
			statuses: map[string]domain.ExecutionStatus{},
			calls:    nil,
			inputs:   map[string]map[string]string{},
		},
	))

	t.Run("members of an active group are started after their siblings", theory(
		When{job: fixture.GroupJob("job-2", domain.Running, domain.Running, domain.Done, domain.Undetermined)},
		Then{
			updated: true,
			statuses: map[string]domain.ExecutionStatus{
				"member-1": domain.QueuedActive,
			},
			calls: []fixture.Call{
				{Op: "execute", TaskId: "member-1"},
			},
			inputs: map[string]map[string]string{
				"member-1": {},
			},
		},
	))

	t.Run("members without links wait for members before them", theory(
		When{job: fixture.UnlinkedGroupJob("job-3", domain.Running, domain.Running, domain.Running, domain.Undetermined)},
		Then{
			updated:  false,
			statuses: map[string]domain.ExecutionStatus{},
			calls:    nil,
			inputs:   map[string]map[string]string{},
		},
	))

	t.Run("members without links are started after members before them", theory(
		When{job: fixture.UnlinkedGroupJob("job-3", domain.Running, domain.Running, domain.Done, domain.Undetermined)},
		Then{
			updated: true,
			statuses: map[string]domain.ExecutionStatus{
				"member-1": domain.QueuedActive,
			},
			calls: []fixture.Call{
				{Op: "execute", TaskId: "member-1"},
			},
			inputs: map[string]map[string]string{
				"member-1": {},
			},
		},
	))

	t.Run("members without links are cancelled when members before them have failed", theory(
		When{job: fixture.UnlinkedGroupJob("job-3", domain.Running, domain.Running, domain.Failed, domain.Undetermined)},
		Then{
			updated: true,
			statuses: map[string]domain.ExecutionStatus{
				"member-1": domain.Cancelled,
			},
			calls:  nil,
			inputs: map[string]map[string]string{},
		},
	))

	t.Run("members of a group not started yet are left", theory(
		When{job: fixture.GroupJob("job-2", domain.Running, domain.Undetermined, domain.Undetermined, domain.Undetermined)},
		Then{
			updated: true,
			statuses: map[string]domain.ExecutionStatus{
				"group":    domain.QueuedActive,
				"member-0": domain.QueuedActive,
			},
			calls: []fixture.Call{
				{Op: "execute", TaskId: "member-0"},
			},
			inputs: map[string]map[string]string{
				"group": {},
			},
		},
	))
}

func TestTask_Errors(t *testing.T) {
	t.Run("it returns errors of Find", func(t *testing.T) {
		f := fixture.New()
		expectedErr := errors.New("fake error")
		f.Jobs.Impl.Find = func(context.Context, domain.JobFindQuery) ([]string, error) {
			return nil, expectedErr
		}
		logger, _ := logtest.NewNullLogger()

		testee := dispatch.Task(logger, f.Jobs, f.Commander, taskutil.New(f.Tasks, nil, logger))
		_, updated, err := testee(context.Background(), dispatch.Seed())
		if !errors.Is(err, expectedErr) {
			t.Errorf("error: %v", err)
		}
		if updated {
			t.Errorf("updated should be false")
		}
	})

	t.Run("it skips jobs which have gone", func(t *testing.T) {
		f := fixture.New()
		f.Jobs.Impl.Find = func(context.Context, domain.JobFindQuery) ([]string, error) {
			return []string{"job-gone"}, nil
		}
		logger, _ := logtest.NewNullLogger()

		testee := dispatch.Task(logger, f.Jobs, f.Commander, taskutil.New(f.Tasks, nil, logger))
		_, updated, err := testee(context.Background(), dispatch.Seed())
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if updated {
			t.Errorf("updated should be false")
		}
	})
}
