package main

import (
	"github.com/labstack/echo/v4"
	"github.com/opst/eoflow/cmd/eoflowd/handlers"
	"github.com/opst/eoflow/pkg/command"
	"github.com/opst/eoflow/pkg/domain"
	jobdb "github.com/opst/eoflow/pkg/domain/job/db"
	"github.com/opst/eoflow/pkg/handler"
	"github.com/opst/eoflow/pkg/handler/product"
)

// route registers APIs under /api. All of them require bearer tokens.
func route(
	e *echo.Echo,
	signKey []byte,
	jobs jobdb.JobInterface,
	cmd handlers.Commander,
	products *handler.Pipelines[domain.Product],
) {
	api := e.Group("/api", handlers.Authenticate(signKey))

	api.POST("/workflows/:workflowId/jobs", handlers.LaunchJobHandler(cmd, "workflowId"))

	api.GET("/jobs/:jobId", handlers.GetJobHandler(jobs, "jobId"))
	for verb, jc := range map[string]command.JobCommand{
		"start":   command.JobStart,
		"stop":    command.JobStop,
		"suspend": command.JobSuspend,
		"resume":  command.JobResume,
	} {
		api.PUT("/jobs/:jobId/"+verb, handlers.JobCommandHandler(jobs, cmd, jc, "jobId"))
	}
	api.GET("/jobs/:jobId/products", handlers.GetProductsHandler(jobs, products, product.Kind, "jobId"))
}
