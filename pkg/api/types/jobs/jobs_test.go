package jobs_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/opst/eoflow/pkg/api/types/jobs"
	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/utils/try"
)

func TestComposeDetail(t *testing.T) {
	start := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	job := &domain.ExecutionJob{
		Id: "job-1", Name: "ndvi", WorkflowId: "wf-1",
		Status:    domain.Running,
		Context:   domain.ExecutionContext{Principal: "alice", Token: "secret"},
		StartTime: &start,
		Graph: try.To(domain.NewGraph([]domain.WorkflowNodeDescriptor{
			{Id: "fetch"},
			{
				Id: "ndvi",
				IncomingLinks: []domain.ComponentLink{
					{SourceNodeId: "fetch", Output: "scene", TargetNodeId: "ndvi", Input: "in"},
				},
			},
		})).OrFatal(t),
		Tasks: []domain.ExecutionTask{
			{
				Id: "task-2", NodeId: "ndvi", ComponentKind: domain.Processing,
				Status: domain.Undetermined,
			},
			{
				Id: "task-1", NodeId: "fetch", ComponentKind: domain.DataSource,
				Status:   domain.Done,
				Outputs:  map[string]string{"scene": "/workspace/S2A_20240401.tif"},
				Executor: "docker",
				Exit:     &domain.TaskExit{Code: 0, Message: "ok"},
			},
		},
	}

	actual := jobs.ComposeDetail(job)

	payload, err := json.Marshal(actual)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["token"]; ok {
		t.Errorf("token is exposed: %s", payload)
	}
	if decoded["startTime"] != "2024-04-01T12:00:00+00:00" {
		t.Errorf("startTime: %v", decoded["startTime"])
	}

	if actual.Principal != "alice" || actual.Status != "RUNNING" {
		t.Errorf("unexpected job: %+v", actual)
	}
	ids := []string{}
	for _, t := range actual.Tasks {
		ids = append(ids, t.TaskId)
	}
	if diff := cmp.Diff([]string{"task-1", "task-2"}, ids); diff != "" {
		t.Errorf("tasks are not ordered (-want +got):\n%s", diff)
	}
	if actual.Tasks[0].Exit == nil || actual.Tasks[0].Exit.Message != "ok" {
		t.Errorf("exit: %+v", actual.Tasks[0].Exit)
	}
}
