package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	kpool "github.com/opst/eoflow/pkg/conn/db/postgres/pool"
	"github.com/opst/eoflow/pkg/domain"
	kpgerr "github.com/opst/eoflow/pkg/domain/errors/dberrors/postgres"
	kpgintr "github.com/opst/eoflow/pkg/domain/internal/db/postgres"
	kdb "github.com/opst/eoflow/pkg/domain/job/db"
	wfpg "github.com/opst/eoflow/pkg/domain/workflow/db/postgres"
	xe "github.com/opst/eoflow/pkg/errors"
)

type jobPG struct {
	pool  kpool.Pool
	newId func() string
}

type Option func(*jobPG) *jobPG

// WithIdGenerator replaces the generator of job and task ids. Ids should be UUIDs.
func WithIdGenerator(f func() string) Option {
	return func(j *jobPG) *jobPG {
		j.newId = f
		return j
	}
}

func New(pool kpool.Pool, options ...Option) kdb.JobInterface {
	j := &jobPG{pool: pool, newId: uuid.NewString}
	for _, o := range options {
		j = o(j)
	}
	return j
}

func missing(jobId string) error {
	return kpgerr.Missing{Table: "job", Identity: fmt.Sprintf("id = %s", jobId)}
}

// depth of group nesting. Top-level nodes are 0.
func depth(g *domain.Graph, n domain.WorkflowNodeDescriptor) int {
	d := 0
	for n.GroupId != "" {
		parent, ok := g.Node(n.GroupId)
		if !ok {
			break
		}
		n = parent
		d += 1
	}
	return d
}

func (m *jobPG) New(ctx context.Context, param kdb.JobParam) (string, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return "", xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	nodes, err := wfpg.NewWorkflow(tx).Nodes(ctx, param.WorkflowId)
	if err != nil {
		return "", err
	}
	if len(nodes) == 0 {
		return "", kpgerr.Missing{
			Table: "workflow_node", Identity: fmt.Sprintf("workflow_id = %s", param.WorkflowId),
		}
	}
	graph, err := domain.NewGraph(nodes)
	if err != nil {
		return "", err
	}

	jobId := m.newId()
	if _, err := tx.Exec(
		ctx,
		`
		insert into "job" ("id", "name", "workflow_id", "principal", "token")
		values ($1::text::uuid, $2, $3, $4, $5)
		`,
		jobId, param.Name, param.WorkflowId, param.Context.Principal, param.Context.Token,
	); err != nil {
		return "", xe.Wrap(kpgerr.Classify(err))
	}

	// groups should be inserted before their members.
	order := graph.Order()
	sort.SliceStable(order, func(i, j int) bool {
		ni, _ := graph.Node(order[i])
		nj, _ := graph.Node(order[j])
		return depth(graph, ni) < depth(graph, nj)
	})

	taskIds := map[string]string{}
	positions := map[string]int{}
	for _, nodeId := range order {
		node, _ := graph.Node(nodeId)
		taskId := m.newId()
		taskIds[nodeId] = taskId

		var groupTaskId *string
		if node.GroupId != "" {
			id, ok := taskIds[node.GroupId]
			if !ok {
				return "", fmt.Errorf("%w: group %s of node %s", domain.ErrMissing, node.GroupId, nodeId)
			}
			groupTaskId = &id
		}
		position := positions[node.GroupId]
		positions[node.GroupId] = position + 1

		given := param.Inputs[nodeId]
		inputs, err := kpgintr.JSONB(given)
		if err != nil {
			return "", xe.Wrap(err)
		}

		if _, err := tx.Exec(
			ctx,
			`
			insert into "task" (
				"id", "job_id", "node_id", "instance_id", "group_id", "position",
				"component_id", "component_kind", "inputs", "external"
			)
			values ($1::text::uuid, $2::text::uuid, $3, 0, $4::text::uuid, $5, $6, $7, $8, $9)
			`,
			taskId, jobId, nodeId, groupTaskId, position,
			node.ComponentId, node.ComponentKind.String(), inputs, len(given) != 0,
		); err != nil {
			return "", xe.Wrap(kpgerr.Classify(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", xe.Wrap(err)
	}
	return jobId, nil
}

func (m *jobPG) Get(ctx context.Context, jobId string) (*domain.ExecutionJob, error) {
	job := &domain.ExecutionJob{Id: jobId}
	var status string
	var start, end *time.Time
	if err := m.pool.QueryRow(
		ctx,
		`
		select "name", "workflow_id", "status"::text, "principal", "token", "start_time", "end_time"
		from "job" where "id"::text = $1
		`,
		jobId,
	).Scan(
		&job.Name, &job.WorkflowId, &status,
		&job.Context.Principal, &job.Context.Token, &start, &end,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, missing(jobId)
		}
		return nil, xe.Wrap(err)
	}
	job.Status = domain.ExecutionStatus(status)
	job.StartTime = start
	job.EndTime = end

	tasks, err := kpgintr.QueryTasks(
		ctx, m.pool,
		`
		select `+kpgintr.TaskColumns+` from "task"
		where "job_id"::text = $1 and "group_id" is null
		order by "position", "node_id", "instance_id"
		`,
		jobId,
	)
	if err != nil {
		return nil, err
	}
	job.Tasks = tasks

	nodes, err := wfpg.NewWorkflow(m.pool).Nodes(ctx, job.WorkflowId)
	if err != nil {
		return nil, err
	}
	graph, err := domain.NewGraph(nodes)
	if err != nil {
		return nil, err
	}
	job.Graph = graph

	return job, nil
}

func (m *jobPG) Find(ctx context.Context, query domain.JobFindQuery) ([]string, error) {
	statuses := make([]string, 0, len(query.Status))
	for _, s := range query.Status {
		statuses = append(statuses, s.String())
	}

	rows, err := m.pool.Query(
		ctx,
		`
		select "id"::text from "job"
		where ($1 = '' or "workflow_id" = $1)
		  and (cardinality($2::text[]) = 0 or "status"::text = any($2::text[]))
		order by "updated_at", "id"
		`,
		query.WorkflowId, statuses,
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

func (m *jobPG) SetStatus(ctx context.Context, jobId string, from []domain.ExecutionStatus, status domain.ExecutionStatus) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	var current string
	if err := tx.QueryRow(
		ctx, `select "status"::text from "job" where "id"::text = $1 for update`, jobId,
	).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return missing(jobId)
		}
		return xe.Wrap(err)
	}
	if s := domain.ExecutionStatus(current); !s.In(from...) {
		return xe.Wrap(&domain.StatusMismatch{Current: s, Expected: from})
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "job" set
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
		jobId, status.String(),
	); err != nil {
		return xe.Wrap(err)
	}

	return xe.Wrap(tx.Commit(ctx))
}
