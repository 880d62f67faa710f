package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	kpool "github.com/opst/eoflow/pkg/conn/db/postgres/pool"
	"github.com/opst/eoflow/pkg/domain"
	xe "github.com/opst/eoflow/pkg/errors"
)

// columns of "task" in the order ScanTask reads.
const TaskColumns = `
	"id"::text, "job_id"::text, "node_id", "instance_id", coalesce("group_id"::text, ''),
	"component_id", "component_kind", "status"::text,
	"inputs", "outputs", "cardinality", "external",
	"principal", "token", "resource_id", "executor",
	"exit_code", "exit_message",
	"start_time", "end_time", "updated_at"
`

func ScanTask(row pgx.Row) (domain.ExecutionTask, error) {
	t := domain.ExecutionTask{}
	var kind, status string
	inputs, outputs := pgtype.JSONB{}, pgtype.JSONB{}
	var cardinality *int32
	var exitCode *int16
	var exitMessage *string
	var start, end *time.Time

	if err := row.Scan(
		&t.Id, &t.JobId, &t.NodeId, &t.InstanceId, &t.GroupId,
		&t.ComponentId, &kind, &status,
		&inputs, &outputs, &cardinality, &t.External,
		&t.Context.Principal, &t.Context.Token, &t.ResourceId, &t.Executor,
		&exitCode, &exitMessage,
		&start, &end, &t.UpdatedAt,
	); err != nil {
		return domain.ExecutionTask{}, err
	}

	t.ComponentKind = domain.ComponentKind(kind)
	t.Status = domain.ExecutionStatus(status)
	t.Inputs = map[string]string{}
	t.Outputs = map[string]string{}
	if inputs.Status == pgtype.Present {
		if err := inputs.AssignTo(&t.Inputs); err != nil {
			return domain.ExecutionTask{}, err
		}
	}
	if outputs.Status == pgtype.Present {
		if err := outputs.AssignTo(&t.Outputs); err != nil {
			return domain.ExecutionTask{}, err
		}
	}
	if cardinality != nil {
		c := int(*cardinality)
		t.Cardinality = &c
	}
	if exitCode != nil {
		t.Exit = &domain.TaskExit{Code: uint8(*exitCode)}
		if exitMessage != nil {
			t.Exit.Message = *exitMessage
		}
	}
	t.StartTime = start
	t.EndTime = end
	return t, nil
}

// QueryTasks runs a query selecting TaskColumns, and loads members of group tasks.
func QueryTasks(ctx context.Context, conn kpool.Queryer, query string, args ...any) ([]domain.ExecutionTask, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	tasks := []domain.ExecutionTask{}
	for rows.Next() {
		t, err := ScanTask(rows)
		if err != nil {
			rows.Close()
			return nil, xe.Wrap(err)
		}
		tasks = append(tasks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}

	for i := range tasks {
		if !tasks[i].IsGroup() {
			continue
		}
		children, err := QueryTasks(
			ctx, conn,
			`select `+TaskColumns+` from "task" where "group_id" = $1 order by "position", "node_id", "instance_id"`,
			tasks[i].Id,
		)
		if err != nil {
			return nil, err
		}
		tasks[i].Children = children
	}

	return tasks, nil
}

// JSONB converts values to a JSONB parameter.
func JSONB(values map[string]string) (pgtype.JSONB, error) {
	if values == nil {
		values = map[string]string{}
	}
	j := pgtype.JSONB{}
	if err := j.Set(values); err != nil {
		return pgtype.JSONB{}, err
	}
	return j, nil
}
