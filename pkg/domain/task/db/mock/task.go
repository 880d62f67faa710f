package mock

import (
	"context"
	"errors"

	"github.com/opst/eoflow/pkg/domain"
	dbmock "github.com/opst/eoflow/pkg/domain/internal/db/mock"
	kdb "github.com/opst/eoflow/pkg/domain/task/db"
)

type TaskInterface struct {
	Impl struct {
		Get         func(ctx context.Context, taskId string) (domain.ExecutionTask, error)
		Find        func(ctx context.Context, query kdb.TaskFindQuery) ([]string, error)
		SetStatus   func(ctx context.Context, taskId string, from []domain.ExecutionStatus, status domain.ExecutionStatus) error
		SetInputs   func(ctx context.Context, taskId string, inputs map[string]string) error
		SetOutputs  func(ctx context.Context, taskId string, outputs map[string]string) error
		SetContext  func(ctx context.Context, taskId string, execCtx domain.ExecutionContext) error
		SetResource func(ctx context.Context, taskId string, executor string, resourceId string) error
		SetExit     func(ctx context.Context, taskId string, exit domain.TaskExit) error
	}

	Calls struct {
		Get       dbmock.CallLog[string]
		Find      dbmock.CallLog[kdb.TaskFindQuery]
		SetStatus dbmock.CallLog[struct {
			TaskId string
			From   []domain.ExecutionStatus
			Status domain.ExecutionStatus
		}]
		SetInputs dbmock.CallLog[struct {
			TaskId string
			Inputs map[string]string
		}]
		SetOutputs dbmock.CallLog[struct {
			TaskId  string
			Outputs map[string]string
		}]
		SetContext dbmock.CallLog[struct {
			TaskId  string
			Context domain.ExecutionContext
		}]
		SetResource dbmock.CallLog[struct {
			TaskId     string
			Executor   string
			ResourceId string
		}]
		SetExit dbmock.CallLog[struct {
			TaskId string
			Exit   domain.TaskExit
		}]
	}
}

func NewTaskInterface() *TaskInterface {
	return &TaskInterface{}
}

var _ kdb.TaskInterface = &TaskInterface{}

func (m *TaskInterface) Get(ctx context.Context, taskId string) (domain.ExecutionTask, error) {
	m.Calls.Get = append(m.Calls.Get, taskId)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, taskId)
	}
	panic(errors.New("it should not be called"))
}

func (m *TaskInterface) Find(ctx context.Context, query kdb.TaskFindQuery) ([]string, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, query)
	}
	panic(errors.New("it should not be called"))
}

func (m *TaskInterface) SetStatus(ctx context.Context, taskId string, from []domain.ExecutionStatus, status domain.ExecutionStatus) error {
	m.Calls.SetStatus = append(m.Calls.SetStatus, struct {
		TaskId string
		From   []domain.ExecutionStatus
		Status domain.ExecutionStatus
	}{TaskId: taskId, From: from, Status: status})
	if m.Impl.SetStatus != nil {
		return m.Impl.SetStatus(ctx, taskId, from, status)
	}
	panic(errors.New("it should not be called"))
}

func (m *TaskInterface) SetInputs(ctx context.Context, taskId string, inputs map[string]string) error {
	m.Calls.SetInputs = append(m.Calls.SetInputs, struct {
		TaskId string
		Inputs map[string]string
	}{TaskId: taskId, Inputs: inputs})
	if m.Impl.SetInputs != nil {
		return m.Impl.SetInputs(ctx, taskId, inputs)
	}
	panic(errors.New("it should not be called"))
}

func (m *TaskInterface) SetOutputs(ctx context.Context, taskId string, outputs map[string]string) error {
	m.Calls.SetOutputs = append(m.Calls.SetOutputs, struct {
		TaskId  string
		Outputs map[string]string
	}{TaskId: taskId, Outputs: outputs})
	if m.Impl.SetOutputs != nil {
		return m.Impl.SetOutputs(ctx, taskId, outputs)
	}
	panic(errors.New("it should not be called"))
}

func (m *TaskInterface) SetContext(ctx context.Context, taskId string, execCtx domain.ExecutionContext) error {
	m.Calls.SetContext = append(m.Calls.SetContext, struct {
		TaskId  string
		Context domain.ExecutionContext
	}{TaskId: taskId, Context: execCtx})
	if m.Impl.SetContext != nil {
		return m.Impl.SetContext(ctx, taskId, execCtx)
	}
	panic(errors.New("it should not be called"))
}

func (m *TaskInterface) SetResource(ctx context.Context, taskId string, executor string, resourceId string) error {
	m.Calls.SetResource = append(m.Calls.SetResource, struct {
		TaskId     string
		Executor   string
		ResourceId string
	}{TaskId: taskId, Executor: executor, ResourceId: resourceId})
	if m.Impl.SetResource != nil {
		return m.Impl.SetResource(ctx, taskId, executor, resourceId)
	}
	panic(errors.New("it should not be called"))
}

func (m *TaskInterface) SetExit(ctx context.Context, taskId string, exit domain.TaskExit) error {
	m.Calls.SetExit = append(m.Calls.SetExit, struct {
		TaskId string
		Exit   domain.TaskExit
	}{TaskId: taskId, Exit: exit})
	if m.Impl.SetExit != nil {
		return m.Impl.SetExit(ctx, taskId, exit)
	}
	panic(errors.New("it should not be called"))
}
