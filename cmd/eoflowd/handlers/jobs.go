package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	apierr "github.com/opst/eoflow/pkg/api/types/errors"
	apijobs "github.com/opst/eoflow/pkg/api/types/jobs"
	"github.com/opst/eoflow/pkg/command"
	"github.com/opst/eoflow/pkg/domain"
	jobdb "github.com/opst/eoflow/pkg/domain/job/db"
)

// Commander is a part of *command.Commander used by handlers.
type Commander interface {
	Launch(ctx context.Context, param jobdb.JobParam) (*domain.ExecutionJob, error)
	Apply(ctx context.Context, c command.JobCommand, job *domain.ExecutionJob) error
}

var _ Commander = &command.Commander{}

// LaunchJobHandler creates a job of the workflow and starts it.
//
// The job runs in the execution context of the request.
// A job created but failed to start is responded as created, with its status FAILED.
func LaunchJobHandler(cmd Commander, paramWorkflowId string) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()

		req := new(apijobs.LaunchRequest)
		if err := c.Bind(req); err != nil {
			return apierr.BadRequest("body should be a json object with name and inputs", err)
		}
		if req.Name == "" {
			return apierr.BadRequest(`"name" is required`, nil)
		}

		job, err := cmd.Launch(ctx, jobdb.JobParam{
			Name:       req.Name,
			WorkflowId: c.Param(paramWorkflowId),
			Context:    ExecutionContextOf(c),
			Inputs:     req.Inputs,
		})
		if job == nil {
			switch {
			case errors.Is(err, domain.ErrMissing):
				return apierr.NotFound()
			case errors.Is(err, domain.ErrCyclicGraph):
				return apierr.Conflict("workflow is not runnable", err)
			default:
				return apierr.InternalServerError(err)
			}
		}
		if err != nil {
			c.Logger().Warnf("job %s is created, but not started: %s", job.Id, err)
		}

		return c.JSON(http.StatusCreated, apijobs.ComposeDetail(job))
	}
}

func GetJobHandler(jobs jobdb.JobInterface, paramJobId string) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()

		job, err := jobs.Get(ctx, c.Param(paramJobId))
		if errors.Is(err, domain.ErrMissing) {
			return apierr.NotFound()
		} else if err != nil {
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusOK, apijobs.ComposeDetail(job))
	}
}

// JobCommandHandler applies the command on the job, and responds the job after that.
//
// Transitions which the command does not accept are responded with 409.
// Failures of the action are responded with 500, whatever caused them.
func JobCommandHandler(jobs jobdb.JobInterface, cmd Commander, jc command.JobCommand, paramJobId string) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()
		jobId := c.Param(paramJobId)

		job, err := jobs.Get(ctx, jobId)
		if errors.Is(err, domain.ErrMissing) {
			return apierr.NotFound()
		} else if err != nil {
			return apierr.InternalServerError(err)
		}

		if err := cmd.Apply(ctx, jc, job); err != nil {
			// the action has failed. transitions refused inside it are not of the job.
			if ee := new(command.ExecutionError); errors.As(err, &ee) {
				return apierr.InternalServerError(err)
			}
			if te := new(command.TransitionError); errors.As(err, &te) {
				return apierr.Conflict("prohibited operation", err)
			}
			if errors.Is(err, domain.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusOK, apijobs.ComposeDetail(job))
	}
}
