package passthrough_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/executor/passthrough"
)

func TestPassthrough(t *testing.T) {
	testee := passthrough.New()

	if !testee.Supports(domain.Component{Kind: domain.DataSource}) {
		t.Error("data source without runtime should be supported")
	}
	if testee.Supports(domain.Component{Kind: domain.DataSource, Runtime: domain.DockerRuntime}) {
		t.Error("data source with runtime should not be supported")
	}
	if testee.Supports(domain.Component{Kind: domain.Processing}) {
		t.Error("processing should not be supported")
	}

	task := domain.ExecutionTask{
		Id: "t1", Status: domain.QueuedActive,
		Inputs: map[string]string{"product": "/store/S2A_20200101.zip"},
	}
	r, err := testee.Execute(context.Background(), task, domain.Component{})
	if err != nil {
		t.Fatal(err)
	}
	if r.ResourceId != "t1" {
		t.Errorf("unexpected receipt: %+v", r)
	}

	obs, err := testee.Observe(context.Background(), task)
	if err != nil {
		t.Fatal(err)
	}
	if obs.Status != domain.Done {
		t.Errorf("unexpected status: %s", obs.Status)
	}
	if diff := cmp.Diff(task.Inputs, obs.Outputs); diff != "" {
		t.Errorf("outputs (-want +got):\n%s", diff)
	}
}
