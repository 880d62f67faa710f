package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	kpool "github.com/opst/eoflow/pkg/conn/db/postgres/pool"
	"github.com/opst/eoflow/pkg/domain"
	kpgerr "github.com/opst/eoflow/pkg/domain/errors/dberrors/postgres"
	kpgintr "github.com/opst/eoflow/pkg/domain/internal/db/postgres"
	kdb "github.com/opst/eoflow/pkg/domain/task/db"
	xe "github.com/opst/eoflow/pkg/errors"
)

type taskPG struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.TaskInterface {
	return &taskPG{pool: pool}
}

func missing(taskId string) error {
	return kpgerr.Missing{Table: "task", Identity: fmt.Sprintf("id = %s", taskId)}
}

func (m *taskPG) Get(ctx context.Context, taskId string) (domain.ExecutionTask, error) {
	tasks, err := kpgintr.QueryTasks(
		ctx, m.pool,
		`select `+kpgintr.TaskColumns+` from "task" where "id"::text = $1`,
		taskId,
	)
	if err != nil {
		return domain.ExecutionTask{}, err
	}
	if len(tasks) == 0 {
		return domain.ExecutionTask{}, missing(taskId)
	}
	return tasks[0], nil
}

func (m *taskPG) Find(ctx context.Context, query kdb.TaskFindQuery) ([]string, error) {
	statuses := make([]string, 0, len(query.Status))
	for _, s := range query.Status {
		statuses = append(statuses, s.String())
	}

	rows, err := m.pool.Query(
		ctx,
		`
		select "id"::text from "task"
		where ($1 = '' or "job_id"::text = $1)
		  and (cardinality($2::text[]) = 0 or "status"::text = any($2::text[]))
		  and (not $3 or "resource_id" <> '')
		order by "job_id", "position", "node_id", "instance_id"
		`,
		query.JobId, statuses, query.HasResource,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, xe.Wrap(err)
		}
		ids = append(ids, id)
	}
	return ids, xe.Wrap(rows.Err())
}

// update runs a single-row update in a transaction, with the row locked.
//
// When guard is not nil, it is called with the status of the locked row and can refuse the update.
func (m *taskPG) update(ctx context.Context, taskId string, guard func(domain.ExecutionStatus) error, query string, args ...any) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	var current string
	if err := tx.QueryRow(
		ctx, `select "status"::text from "task" where "id"::text = $1 for update`, taskId,
	).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return missing(taskId)
		}
		return xe.Wrap(err)
	}
	if guard != nil {
		if err := guard(domain.ExecutionStatus(current)); err != nil {
			return xe.Wrap(err)
		}
	}

	var tag pgconn.CommandTag
	if tag, err = tx.Exec(ctx, query, append([]any{taskId}, args...)...); err != nil {
		return xe.Wrap(kpgerr.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return missing(taskId)
	}

	return xe.Wrap(tx.Commit(ctx))
}

func (m *taskPG) SetStatus(ctx context.Context, taskId string, from []domain.ExecutionStatus, status domain.ExecutionStatus) error {
	guard := func(current domain.ExecutionStatus) error {
		if !current.In(from...) {
			return &domain.StatusMismatch{Current: current, Expected: from}
		}
		return nil
	}
	return m.update(
		ctx, taskId, guard,
		`
		update "task" set
			"status" = $2::text::"execution_status",
			"start_time" = case
				when "start_time" is null and $2 <> 'UNDETERMINED' then now()
				else "start_time"
			end,
			"end_time" = case
				when $2 in ('DONE', 'FAILED', 'CANCELLED') then coalesce("end_time", now())
				else null
			end,
			"updated_at" = now()
		where "id"::text = $1
		`,
		status.String(),
	)
}

func (m *taskPG) SetInputs(ctx context.Context, taskId string, inputs map[string]string) error {
	j, err := kpgintr.JSONB(inputs)
	if err != nil {
		return xe.Wrap(err)
	}
	return m.update(
		ctx, taskId, nil,
		`update "task" set "inputs" = $2, "updated_at" = now() where "id"::text = $1`,
		j,
	)
}

func (m *taskPG) SetOutputs(ctx context.Context, taskId string, outputs map[string]string) error {
	j, err := kpgintr.JSONB(outputs)
	if err != nil {
		return xe.Wrap(err)
	}
	return m.update(
		ctx, taskId, nil,
		`update "task" set "outputs" = $2, "updated_at" = now() where "id"::text = $1`,
		j,
	)
}

func (m *taskPG) SetContext(ctx context.Context, taskId string, execCtx domain.ExecutionContext) error {
	return m.update(
		ctx, taskId, nil,
		`update "task" set "principal" = $2, "token" = $3, "updated_at" = now() where "id"::text = $1`,
		execCtx.Principal, execCtx.Token,
	)
}

func (m *taskPG) SetResource(ctx context.Context, taskId string, executor string, resourceId string) error {
	return m.update(
		ctx, taskId, nil,
		`update "task" set "executor" = $2, "resource_id" = $3, "updated_at" = now() where "id"::text = $1`,
		executor, resourceId,
	)
}

func (m *taskPG) SetExit(ctx context.Context, taskId string, exit domain.TaskExit) error {
	return m.update(
		ctx, taskId, nil,
		`update "task" set "exit_code" = $2, "exit_message" = $3, "updated_at" = now() where "id"::text = $1`,
		int16(exit.Code), exit.Message,
	)
}
