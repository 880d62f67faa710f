// Package tables writes records directly, to give tests of repositories their preconditions.
package tables

import (
	"context"
	"encoding/json"

	kpool "github.com/opst/eoflow/pkg/conn/db/postgres/pool"
	"github.com/opst/eoflow/pkg/domain"
)

type Port struct {
	Direction   string // "source" or "target"
	Name        string
	DataKind    string
	Cardinality int
	Position    int
}

type Component struct {
	Id      string
	Label   string
	Kind    domain.ComponentKind
	Runtime domain.Runtime
	Image   string
	Command []string
	Ports   []Port
}

type Node struct {
	Id          string
	WorkflowId  string
	Name        string
	ComponentId string
	GroupId     string
}

type Link struct {
	Source string
	Output string
	Target string
	Input  string
}

type Job struct {
	Id         string // uuid
	Name       string
	WorkflowId string
	Status     domain.ExecutionStatus
}

type Task struct {
	Id            string // uuid
	JobId         string
	NodeId        string
	GroupId       string
	Position      int
	ComponentId   string
	ComponentKind domain.ComponentKind
	Status        domain.ExecutionStatus
	Inputs        map[string]string
	ResourceId    string
}

// Operation is a set of records. Apply inserts them in the order of dependencies.
type Operation struct {
	Components []Component
	Nodes      []Node
	Links      []Link
	Jobs       []Job
	Tasks      []Task
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orUndetermined(s domain.ExecutionStatus) string {
	if s == "" {
		return domain.Undetermined.String()
	}
	return s.String()
}

func (o Operation) Apply(ctx context.Context, pool kpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, c := range o.Components {
		command, err := json.Marshal(c.Command)
		if err != nil {
			return err
		}
		if c.Command == nil {
			command = []byte("[]")
		}
		if _, err := tx.Exec(
			ctx,
			`
			insert into "component" ("id", "label", "kind", "runtime", "image", "command")
			values ($1, $2, $3, $4, $5, $6::text::jsonb)
			`,
			c.Id, c.Label, c.Kind.String(), string(c.Runtime), c.Image, string(command),
		); err != nil {
			return err
		}
		for _, p := range c.Ports {
			if _, err := tx.Exec(
				ctx,
				`
				insert into "component_port" ("component_id", "direction", "name", "data_kind", "cardinality", "position")
				values ($1, $2, $3, $4, $5, $6)
				`,
				c.Id, p.Direction, p.Name, p.DataKind, p.Cardinality, p.Position,
			); err != nil {
				return err
			}
		}
	}

	// groups go first, since members refer them.
	for _, members := range []bool{false, true} {
		for _, n := range o.Nodes {
			if (n.GroupId != "") != members {
				continue
			}
			if _, err := tx.Exec(
				ctx,
				`
				insert into "workflow_node" ("id", "workflow_id", "name", "component_id", "group_id")
				values ($1, $2, $3, $4, $5)
				`,
				n.Id, n.WorkflowId, n.Name, n.ComponentId, nullable(n.GroupId),
			); err != nil {
				return err
			}
		}
	}

	for _, l := range o.Links {
		if _, err := tx.Exec(
			ctx,
			`
			insert into "component_link" ("source_node_id", "output", "target_node_id", "input")
			values ($1, $2, $3, $4)
			`,
			l.Source, l.Output, l.Target, l.Input,
		); err != nil {
			return err
		}
	}

	for _, j := range o.Jobs {
		if _, err := tx.Exec(
			ctx,
			`
			insert into "job" ("id", "name", "workflow_id", "status")
			values ($1::text::uuid, $2, $3, $4::text::"execution_status")
			`,
			j.Id, j.Name, j.WorkflowId, orUndetermined(j.Status),
		); err != nil {
			return err
		}
	}

	for _, members := range []bool{false, true} {
		for _, t := range o.Tasks {
			if (t.GroupId != "") != members {
				continue
			}
			inputs := []byte("{}")
			if t.Inputs != nil {
				if inputs, err = json.Marshal(t.Inputs); err != nil {
					return err
				}
			}
			if _, err := tx.Exec(
				ctx,
				`
				insert into "task" (
					"id", "job_id", "node_id", "group_id", "position",
					"component_id", "component_kind", "status", "inputs", "resource_id"
				)
				values (
					$1::text::uuid, $2::text::uuid, $3, $4::text::uuid, $5,
					$6, $7, $8::text::"execution_status", $9::text::jsonb, $10
				)
				`,
				t.Id, t.JobId, t.NodeId, nullable(t.GroupId), t.Position,
				t.ComponentId, t.ComponentKind.String(), orUndetermined(t.Status), string(inputs), t.ResourceId,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}
