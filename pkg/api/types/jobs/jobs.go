// Package jobs has request and response bodies of eoflowd about jobs.
package jobs

import (
	"time"

	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/utils"
	"github.com/opst/eoflow/pkg/utils/rfctime"
)

// LaunchRequest is the body of "POST /api/workflows/:workflowId/jobs".
type LaunchRequest struct {
	Name string `json:"name"`

	// Values given to tasks, keyed by node id then input name.
	Inputs map[string]map[string]string `json:"inputs,omitempty"`
}

type Exit struct {
	Code    uint8  `json:"code"`
	Message string `json:"message"`
}

type Task struct {
	TaskId     string `json:"taskId"`
	NodeId     string `json:"nodeId"`
	InstanceId int    `json:"instanceId"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`

	Inputs  map[string]string `json:"inputs,omitempty"`
	Outputs map[string]string `json:"outputs,omitempty"`

	Executor string `json:"executor,omitempty"`
	Exit     *Exit  `json:"exit,omitempty"`

	StartTime *rfctime.RFC3339 `json:"startTime,omitempty"`
	EndTime   *rfctime.RFC3339 `json:"endTime,omitempty"`

	Children []Task `json:"children,omitempty"`
}

type Detail struct {
	JobId      string `json:"jobId"`
	Name       string `json:"name"`
	WorkflowId string `json:"workflowId"`
	Status     string `json:"status"`
	Principal  string `json:"principal,omitempty"`

	StartTime *rfctime.RFC3339 `json:"startTime,omitempty"`
	EndTime   *rfctime.RFC3339 `json:"endTime,omitempty"`

	// Top-level tasks in execution order.
	Tasks []Task `json:"tasks"`
}

func timeOf(t *time.Time) *rfctime.RFC3339 {
	return utils.IfNotNil(t, func(t *time.Time) *rfctime.RFC3339 {
		r := rfctime.RFC3339(*t)
		return &r
	})
}

func ComposeTask(t domain.ExecutionTask) Task {
	return Task{
		TaskId:     t.Id,
		NodeId:     t.NodeId,
		InstanceId: t.InstanceId,
		Kind:       t.ComponentKind.String(),
		Status:     t.Status.String(),
		Inputs:     t.Inputs,
		Outputs:    t.Outputs,
		Executor:   t.Executor,
		Exit: utils.IfNotNil(t.Exit, func(e *domain.TaskExit) *Exit {
			return &Exit{Code: e.Code, Message: e.Message}
		}),
		StartTime: timeOf(t.StartTime),
		EndTime:   timeOf(t.EndTime),
		Children:  utils.Map(t.Children, ComposeTask),
	}
}

func ComposeDetail(j *domain.ExecutionJob) Detail {
	return Detail{
		JobId:      j.Id,
		Name:       j.Name,
		WorkflowId: j.WorkflowId,
		Status:     j.Status.String(),
		Principal:  j.Context.Principal,
		StartTime:  timeOf(j.StartTime),
		EndTime:    timeOf(j.EndTime),
		Tasks: utils.Map(j.OrderedTasks(), func(t *domain.ExecutionTask) Task {
			return ComposeTask(*t)
		}),
	}
}
