// Package fixture builds a Commander on mocks for tests of loop tasks.
package fixture

import (
	"context"
	"fmt"

	"github.com/opst/eoflow/pkg/command"
	"github.com/opst/eoflow/pkg/domain"
	jobmock "github.com/opst/eoflow/pkg/domain/job/db/mock"
	taskmock "github.com/opst/eoflow/pkg/domain/task/db/mock"
	"github.com/opst/eoflow/pkg/executor"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type Call struct {
	Op     string
	TaskId string
}

// Executors records operations in order.
type Executors struct {
	Calls []Call

	// errors to be returned, by task id
	Fail map[string]error
}

func (e *Executors) do(op string, task domain.ExecutionTask) (executor.Receipt, error) {
	e.Calls = append(e.Calls, Call{Op: op, TaskId: task.Id})
	if err, ok := e.Fail[task.Id]; ok {
		return executor.Receipt{}, err
	}
	return executor.Receipt{Executor: "fake", ResourceId: "res-" + task.Id}, nil
}

func (e *Executors) Execute(_ context.Context, t domain.ExecutionTask) (executor.Receipt, error) {
	return e.do("execute", t)
}

func (e *Executors) Stop(_ context.Context, t domain.ExecutionTask) (executor.Receipt, error) {
	return e.do("stop", t)
}

func (e *Executors) Suspend(_ context.Context, t domain.ExecutionTask) (executor.Receipt, error) {
	return e.do("suspend", t)
}

func (e *Executors) Resume(_ context.Context, t domain.ExecutionTask) (executor.Receipt, error) {
	return e.do("resume", t)
}

type Fixture struct {
	Jobs      *jobmock.JobInterface
	Tasks     *taskmock.TaskInterface
	Executors *Executors
	Logs      *logtest.Hook

	// persisted statuses
	JobStatus  map[string]domain.ExecutionStatus
	TaskStatus map[string]domain.ExecutionStatus

	Commander *command.Commander
}

// New returns a Fixture serving the jobs from Jobs.Get and Jobs.Find.
//
// Jobs are returned as they are, so changes made by loop tasks are visible to tests.
func New(jobs ...*domain.ExecutionJob) *Fixture {
	f := &Fixture{
		Jobs:       jobmock.NewJobInterface(),
		Tasks:      taskmock.NewTaskInterface(),
		Executors:  &Executors{Fail: map[string]error{}},
		JobStatus:  map[string]domain.ExecutionStatus{},
		TaskStatus: map[string]domain.ExecutionStatus{},
	}

	f.Jobs.Impl.Find = func(context.Context, domain.JobFindQuery) ([]string, error) {
		ids := make([]string, 0, len(jobs))
		for _, j := range jobs {
			ids = append(ids, j.Id)
		}
		return ids, nil
	}
	f.Jobs.Impl.Get = func(_ context.Context, jobId string) (*domain.ExecutionJob, error) {
		for _, j := range jobs {
			if j.Id == jobId {
				return j, nil
			}
		}
		return nil, fmt.Errorf("%w: job %s", domain.ErrMissing, jobId)
	}
	f.Jobs.Impl.SetStatus = func(_ context.Context, jobId string, _ []domain.ExecutionStatus, status domain.ExecutionStatus) error {
		f.JobStatus[jobId] = status
		return nil
	}

	f.Tasks.Impl.Get = func(_ context.Context, taskId string) (domain.ExecutionTask, error) {
		for _, j := range jobs {
			if t := j.Task(taskId); t != nil {
				return *t, nil
			}
		}
		return domain.ExecutionTask{}, fmt.Errorf("%w: task %s", domain.ErrMissing, taskId)
	}
	f.Tasks.Impl.SetStatus = func(_ context.Context, taskId string, _ []domain.ExecutionStatus, status domain.ExecutionStatus) error {
		f.TaskStatus[taskId] = status
		return nil
	}
	f.Tasks.Impl.SetContext = func(context.Context, string, domain.ExecutionContext) error { return nil }
	f.Tasks.Impl.SetResource = func(context.Context, string, string, string) error { return nil }
	f.Tasks.Impl.SetExit = func(context.Context, string, domain.TaskExit) error { return nil }
	f.Tasks.Impl.SetOutputs = func(context.Context, string, map[string]string) error { return nil }
	f.Tasks.Impl.SetInputs = func(context.Context, string, map[string]string) error { return nil }

	logger, hook := logtest.NewNullLogger()
	f.Logs = hook
	f.Commander = command.New(f.Jobs, f.Tasks, f.Executors, nil, command.WithLogger(logger))
	return f
}

func link(src, dst string) domain.ComponentLink {
	return domain.ComponentLink{SourceNodeId: src, Output: "out", TargetNodeId: dst, Input: "in"}
}

// DiamondJob is a job of A -> B, A -> C. Tasks not in statuses are UNDETERMINED.
func DiamondJob(id string, status domain.ExecutionStatus, statuses map[string]domain.ExecutionStatus) *domain.ExecutionJob {
	g, err := domain.NewGraph([]domain.WorkflowNodeDescriptor{
		{Id: "A"},
		{Id: "B", IncomingLinks: []domain.ComponentLink{link("A", "B")}},
		{Id: "C", IncomingLinks: []domain.ComponentLink{link("A", "C")}},
	})
	if err != nil {
		panic(err)
	}

	job := &domain.ExecutionJob{
		Id:      id,
		Status:  status,
		Context: domain.ExecutionContext{Principal: "alice"},
		Graph:   g,
	}
	for _, node := range []string{"A", "B", "C"} {
		taskId := "task-" + node
		st := domain.Undetermined
		if s, ok := statuses[taskId]; ok {
			st = s
		}
		t := domain.ExecutionTask{
			Id: taskId, JobId: id, NodeId: node, Status: st,
			ComponentKind: domain.Processing,
		}
		if st != domain.Undetermined {
			t.Executor = "fake"
			t.ResourceId = "res-" + taskId
		}
		job.Tasks = append(job.Tasks, t)
	}
	return job
}

// GroupJob is a job of a group G of members M0 -> M1. Statuses are given in order of G, M0 and M1.
func GroupJob(id string, status domain.ExecutionStatus, group, m0, m1 domain.ExecutionStatus) *domain.ExecutionJob {
	return groupJob(id, true, status, group, m0, m1)
}

// UnlinkedGroupJob is GroupJob without the link between members. Members are ordered by their position only.
func UnlinkedGroupJob(id string, status domain.ExecutionStatus, group, m0, m1 domain.ExecutionStatus) *domain.ExecutionJob {
	return groupJob(id, false, status, group, m0, m1)
}

func groupJob(id string, linked bool, status domain.ExecutionStatus, group, m0, m1 domain.ExecutionStatus) *domain.ExecutionJob {
	m1Node := domain.WorkflowNodeDescriptor{Id: "M1", GroupId: "G"}
	if linked {
		m1Node.IncomingLinks = []domain.ComponentLink{link("M0", "M1")}
	}
	g, err := domain.NewGraph([]domain.WorkflowNodeDescriptor{
		{Id: "G", ComponentKind: domain.Group},
		{Id: "M0", GroupId: "G"},
		m1Node,
	})
	if err != nil {
		panic(err)
	}

	member := func(n int, st domain.ExecutionStatus) domain.ExecutionTask {
		t := domain.ExecutionTask{
			Id: fmt.Sprintf("member-%d", n), JobId: id, NodeId: fmt.Sprintf("M%d", n),
			GroupId: "group", ComponentKind: domain.Processing, Status: st,
		}
		if st != domain.Undetermined {
			t.Executor = "fake"
			t.ResourceId = "res-" + t.Id
		}
		return t
	}

	return &domain.ExecutionJob{
		Id:      id,
		Status:  status,
		Context: domain.ExecutionContext{Principal: "bob"},
		Graph:   g,
		Tasks: []domain.ExecutionTask{
			{
				Id: "group", JobId: id, NodeId: "G", ComponentKind: domain.Group, Status: group,
				Children: []domain.ExecutionTask{member(0, m0), member(1, m1)},
			},
		},
	}
}
