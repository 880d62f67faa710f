package handlers

import (
	"errors"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	apierr "github.com/opst/eoflow/pkg/api/types/errors"
	apiproducts "github.com/opst/eoflow/pkg/api/types/products"
	"github.com/opst/eoflow/pkg/domain"
	jobdb "github.com/opst/eoflow/pkg/domain/job/db"
	"github.com/opst/eoflow/pkg/handler"
)

// GetProductsHandler lists products of the job.
//
// Products are outputs of DONE tasks whose values are absolute paths or URIs.
// They are passed through the pipeline for kind before responded.
func GetProductsHandler(
	jobs jobdb.JobInterface, pipelines *handler.Pipelines[domain.Product], kind string, paramJobId string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()

		job, err := jobs.Get(ctx, c.Param(paramJobId))
		if errors.Is(err, domain.ErrMissing) {
			return apierr.NotFound()
		} else if err != nil {
			return apierr.InternalServerError(err)
		}

		resp := []apiproducts.Product{}
		for _, t := range job.AllTasks() {
			if t.IsGroup() || t.Status != domain.Done {
				continue
			}
			names := make([]string, 0, len(t.Outputs))
			for name := range t.Outputs {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				loc := t.Outputs[name]
				if !isLocation(loc) {
					continue
				}
				p, err := pipelines.Apply(ctx, kind, domain.Product{Name: path.Base(loc), Location: loc})
				if err != nil && !errors.Is(err, handler.ErrNoHandlerChain) {
					return apierr.InternalServerError(err)
				}
				resp = append(resp, apiproducts.Compose(t.Id, name, p))
			}
		}

		return c.JSON(http.StatusOK, resp)
	}
}

func isLocation(v string) bool {
	return strings.HasPrefix(v, "/") || strings.Contains(v, "://")
}
