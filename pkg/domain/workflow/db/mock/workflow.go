package mock

import (
	"context"
	"errors"

	"github.com/opst/eoflow/pkg/domain"
	dbmock "github.com/opst/eoflow/pkg/domain/internal/db/mock"
	kdb "github.com/opst/eoflow/pkg/domain/workflow/db"
)

type WorkflowInterface struct {
	Impl struct {
		Nodes func(ctx context.Context, workflowId string) ([]domain.WorkflowNodeDescriptor, error)
	}
	Calls struct {
		Nodes dbmock.CallLog[string]
	}
}

func NewWorkflowInterface() *WorkflowInterface {
	return &WorkflowInterface{}
}

var _ kdb.WorkflowInterface = &WorkflowInterface{}

func (m *WorkflowInterface) Nodes(ctx context.Context, workflowId string) ([]domain.WorkflowNodeDescriptor, error) {
	m.Calls.Nodes = append(m.Calls.Nodes, workflowId)
	if m.Impl.Nodes != nil {
		return m.Impl.Nodes(ctx, workflowId)
	}
	panic(errors.New("it should not be called"))
}

type ComponentInterface struct {
	Impl struct {
		Get func(ctx context.Context, componentId string) (domain.Component, error)
	}
	Calls struct {
		Get dbmock.CallLog[string]
	}
}

func NewComponentInterface() *ComponentInterface {
	return &ComponentInterface{}
}

var _ kdb.ComponentInterface = &ComponentInterface{}

func (m *ComponentInterface) Get(ctx context.Context, componentId string) (domain.Component, error) {
	m.Calls.Get = append(m.Calls.Get, componentId)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, componentId)
	}
	panic(errors.New("it should not be called"))
}
