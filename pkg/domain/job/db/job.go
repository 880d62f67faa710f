package db

import (
	"context"

	"github.com/opst/eoflow/pkg/domain"
)

// JobParam is a request to launch a workflow.
type JobParam struct {
	Name       string
	WorkflowId string
	Context    domain.ExecutionContext

	// Values given to tasks from outside of the job, keyed by node id then input name.
	//
	// Tasks having them are marked External.
	Inputs map[string]map[string]string
}

type JobInterface interface {
	// New creates a job and its tasks for the workflow.
	//
	// Every task is UNDETERMINED. Tasks of nodes in a group are members of the group task.
	//
	// # Returns
	//
	// - string: id of the new job
	//
	// - error: ErrMissing when the workflow has no nodes,
	// ErrCyclicGraph when the workflow is not a DAG.
	New(ctx context.Context, param JobParam) (string, error)

	// Get returns the job with its tasks and workflow graph.
	//
	// # Returns
	//
	// - error: ErrMissing when no job has the id.
	Get(ctx context.Context, jobId string) (*domain.ExecutionJob, error)

	// Find returns ids of jobs matching the query, oldest first.
	Find(ctx context.Context, query domain.JobFindQuery) ([]string, error)

	// SetStatus changes the status of the job, when the job is in one of from.
	//
	// The start time is set when the job leaves UNDETERMINED, and
	// the end time when the job becomes terminal.
	//
	// # Returns
	//
	// - error: ErrMissing when no job has the id.
	// *domain.StatusMismatch (ErrInvalidTransition) when the job is not in from.
	SetStatus(ctx context.Context, jobId string, from []domain.ExecutionStatus, status domain.ExecutionStatus) error
}
