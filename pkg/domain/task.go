package domain

import (
	"fmt"
	"time"
)

type ComponentKind string

const (
	Processing ComponentKind = "processing"
	DataSource ComponentKind = "datasource"
	Group      ComponentKind = "group"
)

func (k ComponentKind) String() string {
	return string(k)
}

func AsComponentKind(s string) (ComponentKind, error) {
	switch k := ComponentKind(s); k {
	case Processing, DataSource, Group:
		return k, nil
	default:
		return "", fmt.Errorf("'%s' is not ComponentKind", s)
	}
}

// ExecutionContext is the security/session context which a task runs under.
//
// It is given to a job when it is launched, and attached to tasks when they are dispatched.
type ExecutionContext struct {
	// Name of the user who launched the job.
	Principal string

	// Session token, if any. Executors pass this to workloads as is.
	Token string
}

func (c ExecutionContext) IsZero() bool {
	return c.Principal == "" && c.Token == ""
}

// TaskExit is how the workload of a task has exited.
type TaskExit struct {
	Code    uint8
	Message string
}

func (e *TaskExit) Equal(o *TaskExit) bool {
	if e == nil || o == nil {
		return e == nil && o == nil
	}
	return e.Code == o.Code && e.Message == o.Message
}

// ExecutionTask is a unit of work: one instance of a workflow node in one job.
type ExecutionTask struct {
	Id    string
	JobId string

	// Id of WorkflowNodeDescriptor which this task instantiates.
	NodeId string

	// Distinguishes parallel (fan-out) instances of the same node.
	InstanceId int

	// Id of the group task owning this task. Empty for top-level tasks.
	GroupId string

	ComponentId   string
	ComponentKind ComponentKind

	Status ExecutionStatus

	Inputs  map[string]string
	Outputs map[string]string

	// Cardinality overrides the one derived from the component, if not nil.
	Cardinality *int

	// External tasks have values supplied from outside of the job.
	// Their outputs do not overwrite inputs already given to children.
	External bool

	Context ExecutionContext

	// Handle of the workload in the executor (container id, job name...).
	ResourceId string

	// Name of the executor which has accepted this task.
	Executor string

	Exit *TaskExit

	StartTime *time.Time
	EndTime   *time.Time
	UpdatedAt time.Time

	// Members of a group task, in execution order.
	//
	// Empty unless ComponentKind is Group.
	Children []ExecutionTask
}

func (t *ExecutionTask) IsGroup() bool {
	return t.ComponentKind == Group
}

// Input returns a value of the input, or "" if it is not given.
func (t *ExecutionTask) Input(name string) string {
	if t.Inputs == nil {
		return ""
	}
	return t.Inputs[name]
}

// Output returns a value of the output and whether it is present.
func (t *ExecutionTask) Output(name string) (string, bool) {
	if t.Outputs == nil {
		return "", false
	}
	v, ok := t.Outputs[name]
	return v, ok
}

// ChildStatuses returns statuses of members of a group task.
func (t *ExecutionTask) ChildStatuses() []ExecutionStatus {
	statuses := make([]ExecutionStatus, 0, len(t.Children))
	for _, c := range t.Children {
		statuses = append(statuses, c.Status)
	}
	return statuses
}

// Child returns the member task with the id, or nil.
func (t *ExecutionTask) Child(id string) *ExecutionTask {
	for i := range t.Children {
		if t.Children[i].Id == id {
			return &t.Children[i]
		}
		if c := t.Children[i].Child(id); c != nil {
			return c
		}
	}
	return nil
}

func (t *ExecutionTask) String() string {
	return fmt.Sprintf(
		"task %s (job: %s, node: %s#%d, status: %s)",
		t.Id, t.JobId, t.NodeId, t.InstanceId, t.Status,
	)
}
