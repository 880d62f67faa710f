package command

import (
	"context"

	"github.com/opst/eoflow/pkg/domain"
	jobdb "github.com/opst/eoflow/pkg/domain/job/db"
	xe "github.com/opst/eoflow/pkg/errors"
)

// Launch creates a job of the workflow and starts it.
//
// # Returns
//
// - *domain.ExecutionJob: the job. It is returned also when JobStart fails, if the job has been created.
//
// - error: errors from the persistence layer, or JobStart.
func (c *Commander) Launch(ctx context.Context, param jobdb.JobParam) (*domain.ExecutionJob, error) {
	jobId, err := c.jobs.New(ctx, param)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	job, err := c.jobs.Get(ctx, jobId)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	c.logger.WithField("job", job.Id).WithField("workflow", param.WorkflowId).Info("job is created")

	if err := JobStart.ApplyTo(ctx, c, job); err != nil {
		return job, err
	}
	return job, nil
}
