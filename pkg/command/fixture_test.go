package command_test

import (
	"context"
	"fmt"

	"github.com/opst/eoflow/pkg/command"
	"github.com/opst/eoflow/pkg/domain"
	jobmock "github.com/opst/eoflow/pkg/domain/job/db/mock"
	taskmock "github.com/opst/eoflow/pkg/domain/task/db/mock"
	"github.com/opst/eoflow/pkg/executor"
	"github.com/opst/eoflow/pkg/notify"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type call struct {
	Op     string
	TaskId string
}

// fakeExecutors records dispatched operations in order.
type fakeExecutors struct {
	calls []call
	fail  map[string]error // by task id
}

func (f *fakeExecutors) do(op string, task domain.ExecutionTask) (executor.Receipt, error) {
	f.calls = append(f.calls, call{Op: op, TaskId: task.Id})
	if err, ok := f.fail[task.Id]; ok {
		return executor.Receipt{}, err
	}
	return executor.Receipt{Executor: "fake", ResourceId: "res-" + task.Id}, nil
}

func (f *fakeExecutors) Execute(_ context.Context, t domain.ExecutionTask) (executor.Receipt, error) {
	return f.do("execute", t)
}
func (f *fakeExecutors) Stop(_ context.Context, t domain.ExecutionTask) (executor.Receipt, error) {
	return f.do("stop", t)
}
func (f *fakeExecutors) Suspend(_ context.Context, t domain.ExecutionTask) (executor.Receipt, error) {
	return f.do("suspend", t)
}
func (f *fakeExecutors) Resume(_ context.Context, t domain.ExecutionTask) (executor.Receipt, error) {
	return f.do("resume", t)
}

type event struct {
	Topic   string
	Message any
}

type hookCall struct {
	TaskId string
	Status domain.ExecutionStatus
}

type recordingHooks struct {
	calls []hookCall
}

func (r *recordingHooks) Run(_ context.Context, taskId string, status domain.ExecutionStatus) error {
	r.calls = append(r.calls, hookCall{TaskId: taskId, Status: status})
	return nil
}

type fixture struct {
	jobs      *jobmock.JobInterface
	tasks     *taskmock.TaskInterface
	executors *fakeExecutors
	hooks     *recordingHooks
	events    []event
	logs      *logtest.Hook

	// persisted statuses. Updates of known entries are compared with expected statuses.
	jobStatus  map[string]domain.ExecutionStatus
	taskStatus map[string]domain.ExecutionStatus

	commander *command.Commander
}

func newFixture() *fixture {
	f := &fixture{
		jobs:       jobmock.NewJobInterface(),
		tasks:      taskmock.NewTaskInterface(),
		executors:  &fakeExecutors{fail: map[string]error{}},
		hooks:      &recordingHooks{},
		jobStatus:  map[string]domain.ExecutionStatus{},
		taskStatus: map[string]domain.ExecutionStatus{},
	}
	f.jobs.Impl.SetStatus = func(_ context.Context, jobId string, from []domain.ExecutionStatus, status domain.ExecutionStatus) error {
		return compareAndSet(f.jobStatus, jobId, from, status)
	}
	f.tasks.Impl.SetStatus = func(_ context.Context, taskId string, from []domain.ExecutionStatus, status domain.ExecutionStatus) error {
		return compareAndSet(f.taskStatus, taskId, from, status)
	}
	f.tasks.Impl.SetContext = func(context.Context, string, domain.ExecutionContext) error { return nil }
	f.tasks.Impl.SetResource = func(context.Context, string, string, string) error { return nil }
	f.tasks.Impl.SetExit = func(context.Context, string, domain.TaskExit) error { return nil }
	f.tasks.Impl.SetOutputs = func(context.Context, string, map[string]string) error { return nil }

	sink := notify.Func(func(_ string, topic string, message any) {
		f.events = append(f.events, event{Topic: topic, Message: message})
	})
	logger, hook := logtest.NewNullLogger()
	f.logs = hook
	f.commander = command.New(
		f.jobs, f.tasks, f.executors, sink,
		command.WithLogger(logger),
		command.WithCompletionHooks(f.hooks),
	)
	return f
}

func compareAndSet(
	persisted map[string]domain.ExecutionStatus, id string,
	from []domain.ExecutionStatus, status domain.ExecutionStatus,
) error {
	if current, ok := persisted[id]; ok && !current.In(from...) {
		return &domain.StatusMismatch{Current: current, Expected: from}
	}
	persisted[id] = status
	return nil
}

func link(src, dst string) domain.ComponentLink {
	return domain.ComponentLink{SourceNodeId: src, Output: "out", TargetNodeId: dst, Input: "in"}
}

// diamondJob is a job of A -> B, A -> C.
func diamondJob(status domain.ExecutionStatus, taskStatus map[string]domain.ExecutionStatus) *domain.ExecutionJob {
	g, err := domain.NewGraph([]domain.WorkflowNodeDescriptor{
		{Id: "A"},
		{Id: "B", IncomingLinks: []domain.ComponentLink{link("A", "B")}},
		{Id: "C", IncomingLinks: []domain.ComponentLink{link("A", "C")}},
	})
	if err != nil {
		panic(err)
	}

	st := func(id string) domain.ExecutionStatus {
		if s, ok := taskStatus[id]; ok {
			return s
		}
		return domain.Undetermined
	}
	return &domain.ExecutionJob{
		Id:      "job-1",
		Status:  status,
		Context: domain.ExecutionContext{Principal: "alice", Token: "secret"},
		Graph:   g,
		Tasks: []domain.ExecutionTask{
			{Id: "task-A", JobId: "job-1", NodeId: "A", Status: st("task-A"), ComponentKind: domain.Processing},
			{Id: "task-B", JobId: "job-1", NodeId: "B", Status: st("task-B"), ComponentKind: domain.Processing},
			{Id: "task-C", JobId: "job-1", NodeId: "C", Status: st("task-C"), ComponentKind: domain.Processing},
		},
	}
}

func groupTask(status domain.ExecutionStatus, members ...domain.ExecutionStatus) *domain.ExecutionTask {
	g := &domain.ExecutionTask{
		Id: "group", JobId: "job-1", NodeId: "G", ComponentKind: domain.Group, Status: status,
		Context: domain.ExecutionContext{Principal: "bob"},
	}
	for i, s := range members {
		g.Children = append(g.Children, domain.ExecutionTask{
			Id: fmt.Sprintf("member-%d", i), JobId: "job-1", NodeId: fmt.Sprintf("M%d", i),
			GroupId: "group", ComponentKind: domain.Processing, Status: s,
		})
	}
	return g
}
