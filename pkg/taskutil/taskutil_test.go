package taskutil_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/opst/eoflow/pkg/domain"
	taskmock "github.com/opst/eoflow/pkg/domain/task/db/mock"
	"github.com/opst/eoflow/pkg/taskutil"
	"github.com/opst/eoflow/pkg/utils/try"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func link(src, out, dst, in string) domain.ComponentLink {
	return domain.ComponentLink{SourceNodeId: src, Output: out, TargetNodeId: dst, Input: in}
}

// chainJob is a job of A -> B -> C, and X -> C. Each node has instances 0 and 1.
func chainJob(t *testing.T, status map[string]domain.ExecutionStatus) *domain.ExecutionJob {
	t.Helper()
	g := try.To(domain.NewGraph([]domain.WorkflowNodeDescriptor{
		{Id: "A"},
		{Id: "X"},
		{Id: "B", IncomingLinks: []domain.ComponentLink{link("A", "result", "B", "input")}},
		{Id: "C", IncomingLinks: []domain.ComponentLink{
			link("B", "result", "C", "input"),
			link("X", "scene", "C", "reference"),
		}},
	})).OrFatal(t)

	job := &domain.ExecutionJob{Id: "job-1", Graph: g}
	for _, node := range []string{"A", "X", "B", "C"} {
		for _, inst := range []string{"0", "1"} {
			id := node + inst
			s, ok := status[id]
			if !ok {
				s = domain.Undetermined
			}
			job.Tasks = append(job.Tasks, domain.ExecutionTask{
				Id: id, JobId: "job-1", NodeId: node, InstanceId: int(inst[0] - '0'), Status: s,
			})
		}
	}
	return job
}

func TestParentIds(t *testing.T) {
	job := chainJob(t, nil)

	if got := taskutil.ParentIds(job, job.Task("A0")); got != nil {
		t.Errorf("root task has parents: %v", got)
	}
	if diff := cmp.Diff([]string{"B1", "X1"}, taskutil.ParentIds(job, job.Task("C1"))); diff != "" {
		t.Errorf("parents of C1 (-want +got):\n%s", diff)
	}
}

func TestHaveParentsCompleted(t *testing.T) {
	type When struct {
		persisted map[string]domain.ExecutionStatus
		task      string
	}
	type Then struct {
		completed bool
		queried   []string
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			// statuses in the job are stale. persisted ones should be used.
			job := chainJob(t, nil)
			tasks := taskmock.NewTaskInterface()
			tasks.Impl.Get = func(_ context.Context, taskId string) (domain.ExecutionTask, error) {
				return domain.ExecutionTask{Id: taskId, Status: when.persisted[taskId]}, nil
			}
			logger, _ := logtest.NewNullLogger()
			testee := taskutil.New(tasks, nil, logger)

			got, err := testee.HaveParentsCompleted(context.Background(), job, job.Task(when.task))
			if err != nil {
				t.Fatal(err)
			}
			if got != then.completed {
				t.Errorf("completed: %v", got)
			}
			if diff := cmp.Diff(then.queried, []string(tasks.Calls.Get)); diff != "" {
				t.Errorf("queried (-want +got):\n%s", diff)
			}
		}
	}

	t.Run("a root task is always ready", theory(
		When{task: "A0"},
		Then{completed: true, queried: nil},
	))
	t.Run("all ancestors are terminal", theory(
		When{
			persisted: map[string]domain.ExecutionStatus{
				"A0": domain.Done, "X0": domain.Failed, "B0": domain.Cancelled,
			},
			task: "C0",
		},
		Then{completed: true, queried: []string{"A0", "B0", "X0"}},
	))
	t.Run("a transitive ancestor is running", theory(
		When{
			persisted: map[string]domain.ExecutionStatus{
				"A1": domain.Running, "X1": domain.Done, "B1": domain.Done,
			},
			task: "C1",
		},
		Then{completed: false, queried: []string{"A1", "B1", "X1"}},
	))
}

func TestHaveParentsCompleted_Error(t *testing.T) {
	job := chainJob(t, nil)
	expectedErr := errors.New("fake error")
	tasks := taskmock.NewTaskInterface()
	tasks.Impl.Get = func(context.Context, string) (domain.ExecutionTask, error) {
		return domain.ExecutionTask{}, expectedErr
	}
	logger, _ := logtest.NewNullLogger()

	_, err := taskutil.New(tasks, nil, logger).HaveParentsCompleted(context.Background(), job, job.Task("B0"))
	if !errors.Is(err, expectedErr) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFailedParents(t *testing.T) {
	job := chainJob(t, map[string]domain.ExecutionStatus{
		"A0": domain.Done, "X0": domain.Failed, "B0": domain.Done,
	})
	got := []string{}
	for _, p := range taskutil.FailedParents(job, job.Task("C0")) {
		got = append(got, p.Id)
	}
	if diff := cmp.Diff([]string{"X0"}, got); diff != "" {
		t.Errorf("failed parents (-want +got):\n%s", diff)
	}
}

func TestHaveAllTasksCompleted(t *testing.T) {
	all := map[string]domain.ExecutionStatus{}
	for _, id := range []string{"A0", "A1", "X0", "X1", "B0", "B1", "C0", "C1"} {
		all[id] = domain.Done
	}
	if !taskutil.HaveAllTasksCompleted(chainJob(t, all)) {
		t.Error("terminal job is not completed")
	}

	all["C1"] = domain.Suspended
	if taskutil.HaveAllTasksCompleted(chainJob(t, all)) {
		t.Error("suspended task is taken as completed")
	}
}

type fakeSandbox map[string]string

func (f fakeSandbox) Relativize(_ context.Context, hostPath string, _ string) (string, error) {
	if p, ok := f[hostPath]; ok {
		return p, nil
	}
	return hostPath, taskutil.ErrOutsideSandbox
}

func TestTransferParentOutputs(t *testing.T) {
	t.Run("it passes outputs of parents to inputs, relativized", func(t *testing.T) {
		job := chainJob(t, nil)
		job.Task("B0").Outputs = map[string]string{"result": "/data/x.tif"}
		job.Task("X0").Outputs = map[string]string{"scene": "/elsewhere/scene.safe"}
		c0 := job.Task("C0")
		c0.Inputs = map[string]string{"threshold": "0.5"}

		tasks := taskmock.NewTaskInterface()
		tasks.Impl.SetInputs = func(context.Context, string, map[string]string) error { return nil }
		logger, _ := logtest.NewNullLogger()
		testee := taskutil.New(tasks, fakeSandbox{"/data/x.tif": "/mnt/work/x.tif"}, logger)

		got, err := testee.TransferParentOutputs(context.Background(), job, c0)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]string{
			"threshold": "0.5",
			"input":     "/mnt/work/x.tif",
			"reference": "/elsewhere/scene.safe",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("inputs (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(want, c0.Inputs); diff != "" {
			t.Errorf("task inputs (-want +got):\n%s", diff)
		}
		if last := tasks.Calls.SetInputs.Last(); last.TaskId != "C0" {
			t.Errorf("persisted for %s", last.TaskId)
		}
	})

	t.Run("a given input is kept when the parent is external", func(t *testing.T) {
		job := chainJob(t, nil)
		a := job.Task("A0")
		a.External = true
		a.Outputs = map[string]string{"result": "/data/from-parent"}
		b := job.Task("B0")
		b.Inputs = map[string]string{"input": "/data/given"}

		tasks := taskmock.NewTaskInterface()
		tasks.Impl.SetInputs = func(context.Context, string, map[string]string) error { return nil }
		logger, _ := logtest.NewNullLogger()

		got := try.To(taskutil.New(tasks, nil, logger).TransferParentOutputs(context.Background(), job, b)).OrFatal(t)
		if diff := cmp.Diff(map[string]string{"input": "/data/given"}, got); diff != "" {
			t.Errorf("inputs (-want +got):\n%s", diff)
		}
	})

	t.Run("a missing output is logged and skipped", func(t *testing.T) {
		job := chainJob(t, nil)
		b := job.Task("B0")

		tasks := taskmock.NewTaskInterface()
		tasks.Impl.SetInputs = func(context.Context, string, map[string]string) error { return nil }
		logger, hook := logtest.NewNullLogger()

		got := try.To(taskutil.New(tasks, nil, logger).TransferParentOutputs(context.Background(), job, b)).OrFatal(t)
		if len(got) != 0 {
			t.Errorf("unexpected inputs: %v", got)
		}
		if entry := hook.LastEntry(); entry == nil || entry.Message != "parent task has no such output" {
			t.Errorf("not logged: %+v", entry)
		}
	})
}
