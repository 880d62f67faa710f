package db

import (
	"context"

	"github.com/opst/eoflow/pkg/domain"
)

type WorkflowInterface interface {
	// Nodes returns all nodes of the workflow, with their incoming links.
	//
	// Nodes in groups are included.
	Nodes(ctx context.Context, workflowId string) ([]domain.WorkflowNodeDescriptor, error)
}

type ComponentInterface interface {
	// Get returns the component.
	//
	// # Returns
	//
	// - error: ErrMissing when no component has the id.
	Get(ctx context.Context, componentId string) (domain.Component, error)
}
