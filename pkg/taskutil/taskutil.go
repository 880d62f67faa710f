// Package taskutil provides helpers around tasks in jobs:
// readiness of tasks, data transfer along links, cardinalities and paths seen from containers.
package taskutil

import (
	"context"
	"errors"

	"github.com/opst/eoflow/pkg/domain"
	taskdb "github.com/opst/eoflow/pkg/domain/task/db"
	xe "github.com/opst/eoflow/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Relativizer translates host paths for containers. *Sandbox implements this.
type Relativizer interface {
	Relativize(ctx context.Context, hostPath string, taskId string) (string, error)
}

type identity struct{}

func (identity) Relativize(_ context.Context, hostPath string, _ string) (string, error) {
	return hostPath, nil
}

type Utils struct {
	tasks   taskdb.TaskInterface
	sandbox Relativizer
	logger  logrus.FieldLogger
}

// New returns Utils. When sandbox is nil, paths are passed to tasks as they are.
func New(tasks taskdb.TaskInterface, sandbox Relativizer, logger logrus.FieldLogger) *Utils {
	if sandbox == nil {
		sandbox = identity{}
	}
	return &Utils{tasks: tasks, sandbox: sandbox, logger: logger}
}

// ParentIds returns ids of tasks which the task takes inputs from.
//
// Parents are tasks of source nodes of incoming links, with the same instance id.
// It returns nil when the node has no incoming links.
// Order of members in a group does not make parents. See HaveParentsCompleted.
func ParentIds(job *domain.ExecutionJob, task *domain.ExecutionTask) []string {
	if job.Graph == nil {
		return nil
	}
	links := job.Graph.Incoming(task.NodeId)
	if len(links) == 0 {
		return nil
	}

	ids := []string{}
	seen := map[string]struct{}{}
	for _, l := range links {
		p := job.FindTask(l.SourceNodeId, task.InstanceId)
		if p == nil {
			continue
		}
		if _, ok := seen[p.Id]; ok {
			continue
		}
		seen[p.Id] = struct{}{}
		ids = append(ids, p.Id)
	}
	return ids
}

// ancestors returns tasks which must finish before the task, with the same instance id.
//
// They are tasks of transitive upstream nodes. A member of a group also waits for
// members before it, and their upstreams, even without links between them.
func ancestors(job *domain.ExecutionJob, task *domain.ExecutionTask) []*domain.ExecutionTask {
	if job.Graph == nil {
		return nil
	}
	ts := []*domain.ExecutionTask{}
	seen := map[string]struct{}{task.Id: {}}
	add := func(nodeIds ...string) {
		for _, nodeId := range nodeIds {
			t := job.FindTask(nodeId, task.InstanceId)
			if t == nil {
				continue
			}
			if _, ok := seen[t.Id]; ok {
				continue
			}
			seen[t.Id] = struct{}{}
			ts = append(ts, t)
		}
	}

	add(job.Graph.Ancestors(task.NodeId)...)
	for _, sibling := range previousSiblings(job, task) {
		add(sibling.NodeId)
		add(job.Graph.Ancestors(sibling.NodeId)...)
	}
	return ts
}

// previousSiblings returns members of the group of the task, which are ordered before the task.
func previousSiblings(job *domain.ExecutionJob, task *domain.ExecutionTask) []*domain.ExecutionTask {
	if task.GroupId == "" {
		return nil
	}
	group := job.Task(task.GroupId)
	if group == nil {
		return nil
	}
	siblings := []*domain.ExecutionTask{}
	for i := range group.Children {
		if group.Children[i].Id == task.Id {
			return siblings
		}
		siblings = append(siblings, &group.Children[i])
	}
	return nil
}

// HaveParentsCompleted tells whether every upstream task of the task is terminal.
//
// For a member of a group, members before it are taken as upstream.
//
// Statuses are read from the persistence layer, not from job.
func (u *Utils) HaveParentsCompleted(ctx context.Context, job *domain.ExecutionJob, task *domain.ExecutionTask) (bool, error) {
	pending := 0
	for _, a := range ancestors(job, task) {
		persisted, err := u.tasks.Get(ctx, a.Id)
		if err != nil {
			return false, xe.Wrap(err)
		}
		a.Status = persisted.Status
		if !persisted.Status.Terminal() {
			pending += 1
		}
	}
	return pending == 0, nil
}

// FailedParents returns upstream tasks which have finished without DONE.
//
// It looks statuses in job. Call HaveParentsCompleted before to refresh them.
func FailedParents(job *domain.ExecutionJob, task *domain.ExecutionTask) []*domain.ExecutionTask {
	failed := []*domain.ExecutionTask{}
	for _, a := range ancestors(job, task) {
		if a.Status.Terminal() && a.Status != domain.Done {
			failed = append(failed, a)
		}
	}
	return failed
}

// HaveAllTasksCompleted tells whether every task of the job is terminal.
func HaveAllTasksCompleted(job *domain.ExecutionJob) bool {
	for _, t := range job.OrderedTasks() {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

// TransferParentOutputs sets outputs of parents to inputs of the task, along incoming links.
//
// Values are relativized for containers. Paths outside of the sandbox are passed as they are.
// An input which is given already is kept when its parent is external.
// Missing outputs of parents are logged and skipped.
//
// # Returns
//
// - map[string]string: the new inputs, also persisted and set to task.Inputs.
func (u *Utils) TransferParentOutputs(ctx context.Context, job *domain.ExecutionJob, task *domain.ExecutionTask) (map[string]string, error) {
	inputs := make(map[string]string, len(task.Inputs))
	for k, v := range task.Inputs {
		inputs[k] = v
	}
	if job.Graph == nil {
		return inputs, nil
	}

	logger := u.logger.WithFields(logrus.Fields{"job": job.Id, "task": task.Id})
	for _, l := range job.Graph.Incoming(task.NodeId) {
		parent := job.FindTask(l.SourceNodeId, task.InstanceId)
		if parent == nil {
			logger.WithField("link", l.String()).Error("parent task is missing")
			continue
		}
		if parent.External && inputs[l.Input] != "" {
			continue
		}
		value, ok := parent.Output(l.Output)
		if !ok || value == "" {
			logger.WithFields(logrus.Fields{
				"parent": parent.Id, "output": l.Output,
			}).Error("parent task has no such output")
			continue
		}

		rel, err := u.sandbox.Relativize(ctx, value, task.Id)
		if errors.Is(err, ErrOutsideSandbox) {
			logger.WithField("path", value).Debug("passed as is")
			rel = value
		} else if err != nil {
			return nil, err
		}
		inputs[l.Input] = rel
	}

	if err := u.tasks.SetInputs(ctx, task.Id, inputs); err != nil {
		return nil, xe.Wrap(err)
	}
	task.Inputs = inputs
	return inputs, nil
}
