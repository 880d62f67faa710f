package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	kpool "github.com/opst/eoflow/pkg/conn/db/postgres/pool"
	"github.com/opst/eoflow/pkg/domain"
	kpgerr "github.com/opst/eoflow/pkg/domain/errors/dberrors/postgres"
	kdb "github.com/opst/eoflow/pkg/domain/workflow/db"
	xe "github.com/opst/eoflow/pkg/errors"
)

type workflowPG struct {
	pool kpool.Queryer
}

func NewWorkflow(pool kpool.Queryer) kdb.WorkflowInterface {
	return &workflowPG{pool: pool}
}

func (w *workflowPG) Nodes(ctx context.Context, workflowId string) ([]domain.WorkflowNodeDescriptor, error) {
	rows, err := w.pool.Query(
		ctx,
		`
		select "n"."id", "n"."name", "n"."component_id", "c"."kind", coalesce("n"."group_id", '')
		from "workflow_node" as "n"
		inner join "component" as "c" on "c"."id" = "n"."component_id"
		where "n"."workflow_id" = $1
		order by "n"."id"
		`,
		workflowId,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	nodes := []domain.WorkflowNodeDescriptor{}
	index := map[string]int{}
	for rows.Next() {
		n := domain.WorkflowNodeDescriptor{WorkflowId: workflowId}
		var kind string
		if err := rows.Scan(&n.Id, &n.Name, &n.ComponentId, &kind, &n.GroupId); err != nil {
			rows.Close()
			return nil, xe.Wrap(err)
		}
		n.ComponentKind = domain.ComponentKind(kind)
		index[n.Id] = len(nodes)
		nodes = append(nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}

	links, err := w.pool.Query(
		ctx,
		`
		select "l"."source_node_id", "l"."output", "l"."target_node_id", "l"."input"
		from "component_link" as "l"
		inner join "workflow_node" as "n" on "n"."id" = "l"."target_node_id"
		where "n"."workflow_id" = $1
		order by "l"."target_node_id", "l"."input"
		`,
		workflowId,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer links.Close()

	for links.Next() {
		var l domain.ComponentLink
		if err := links.Scan(&l.SourceNodeId, &l.Output, &l.TargetNodeId, &l.Input); err != nil {
			return nil, xe.Wrap(err)
		}
		i, ok := index[l.TargetNodeId]
		if !ok {
			continue
		}
		nodes[i].IncomingLinks = append(nodes[i].IncomingLinks, l)
	}
	if err := links.Err(); err != nil {
		return nil, xe.Wrap(err)
	}

	return nodes, nil
}

type componentPG struct {
	pool kpool.Queryer
}

func NewComponent(pool kpool.Queryer) kdb.ComponentInterface {
	return &componentPG{pool: pool}
}

func (c *componentPG) Get(ctx context.Context, componentId string) (domain.Component, error) {
	comp := domain.Component{Id: componentId}
	var kind, runtime string
	command := pgtype.JSONB{}
	if err := c.pool.QueryRow(
		ctx,
		`select "label", "kind", "runtime", "image", "command" from "component" where "id" = $1`,
		componentId,
	).Scan(&comp.Label, &kind, &runtime, &comp.Image, &command); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Component{}, kpgerr.Missing{
				Table: "component", Identity: fmt.Sprintf("id = %s", componentId),
			}
		}
		return domain.Component{}, xe.Wrap(err)
	}
	comp.Kind = domain.ComponentKind(kind)
	comp.Runtime = domain.Runtime(runtime)
	if command.Status == pgtype.Present {
		if err := command.AssignTo(&comp.Command); err != nil {
			return domain.Component{}, xe.Wrap(err)
		}
	}

	rows, err := c.pool.Query(
		ctx,
		`
		select "direction", "name", "data_kind", "cardinality"
		from "component_port"
		where "component_id" = $1
		order by "direction", "position", "name"
		`,
		componentId,
	)
	if err != nil {
		return domain.Component{}, xe.Wrap(err)
	}
	defer rows.Close()

	for rows.Next() {
		var direction string
		var p domain.Port
		if err := rows.Scan(&direction, &p.Name, &p.DataKind, &p.Cardinality); err != nil {
			return domain.Component{}, xe.Wrap(err)
		}
		switch direction {
		case "source":
			comp.Sources = append(comp.Sources, p)
		case "target":
			comp.Targets = append(comp.Targets, p)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Component{}, xe.Wrap(err)
	}

	return comp, nil
}
