package domain

import (
	"sort"
	"time"
)

// ExecutionJob is a run of an entire workflow.
type ExecutionJob struct {
	Id         string
	Name       string
	WorkflowId string

	Status ExecutionStatus

	Context ExecutionContext

	StartTime *time.Time
	EndTime   *time.Time

	// Top-level tasks. Members of groups are in ExecutionTask.Children.
	Tasks []ExecutionTask

	// Graph of the workflow. Links between top-level tasks are between top-level nodes.
	//
	// This can be nil when the job is loaded without its workflow.
	Graph *Graph
}

// OrderedTasks returns top-level tasks in a topological order of the graph.
//
// Tasks on the same position are sorted by node id then instance id.
// Tasks whose node is unknown to the graph come last.
func (j *ExecutionJob) OrderedTasks() []*ExecutionTask {
	ordered := make([]*ExecutionTask, 0, len(j.Tasks))
	for i := range j.Tasks {
		ordered = append(ordered, &j.Tasks[i])
	}

	pos := func(t *ExecutionTask) int {
		if j.Graph == nil {
			return -1
		}
		return j.Graph.position(t.NodeId)
	}

	sort.SliceStable(ordered, func(a, b int) bool {
		ta, tb := ordered[a], ordered[b]
		pa, pb := pos(ta), pos(tb)
		if pa != pb {
			switch {
			case pa < 0:
				return false
			case pb < 0:
				return true
			default:
				return pa < pb
			}
		}
		if ta.NodeId != tb.NodeId {
			return ta.NodeId < tb.NodeId
		}
		return ta.InstanceId < tb.InstanceId
	})
	return ordered
}

// RootTasks returns top-level tasks without incoming links.
func (j *ExecutionJob) RootTasks() []*ExecutionTask {
	roots := []*ExecutionTask{}
	for _, t := range j.OrderedTasks() {
		if j.Graph != nil && len(j.Graph.Incoming(t.NodeId)) != 0 {
			continue
		}
		roots = append(roots, t)
	}
	return roots
}

// Task returns the task with the id, descending into groups. nil if missing.
func (j *ExecutionJob) Task(id string) *ExecutionTask {
	for i := range j.Tasks {
		if j.Tasks[i].Id == id {
			return &j.Tasks[i]
		}
		if c := j.Tasks[i].Child(id); c != nil {
			return c
		}
	}
	return nil
}

// FindTask returns the task instantiating the node, descending into groups. nil if missing.
func (j *ExecutionJob) FindTask(nodeId string, instanceId int) *ExecutionTask {
	var find func([]ExecutionTask) *ExecutionTask
	find = func(tasks []ExecutionTask) *ExecutionTask {
		for i := range tasks {
			t := &tasks[i]
			if t.NodeId == nodeId && t.InstanceId == instanceId {
				return t
			}
			if found := find(t.Children); found != nil {
				return found
			}
		}
		return nil
	}
	return find(j.Tasks)
}

// AllTasks returns every task of the job, groups followed by their members.
func (j *ExecutionJob) AllTasks() []*ExecutionTask {
	all := []*ExecutionTask{}
	var walk func(*ExecutionTask)
	walk = func(t *ExecutionTask) {
		all = append(all, t)
		for i := range t.Children {
			walk(&t.Children[i])
		}
	}
	for _, t := range j.OrderedTasks() {
		walk(t)
	}
	return all
}

// JobFindQuery narrows jobs. Empty fields do not narrow.
type JobFindQuery struct {
	WorkflowId string
	Status     []ExecutionStatus
}
