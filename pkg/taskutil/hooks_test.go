package taskutil_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/taskutil"
)

func TestCompletionHooks(t *testing.T) {
	ran := []string{}
	errFirst := errors.New("first")
	errThird := errors.New("third")
	testee := taskutil.NewCompletionHooks(
		func(_ context.Context, taskId string, _ domain.ExecutionStatus) error {
			ran = append(ran, "first:"+taskId)
			return errFirst
		},
		func(_ context.Context, taskId string, status domain.ExecutionStatus) error {
			ran = append(ran, "second:"+taskId+":"+status.String())
			return nil
		},
		func(_ context.Context, taskId string, _ domain.ExecutionStatus) error {
			ran = append(ran, "third:"+taskId)
			return errThird
		},
	)

	err := testee.Run(context.Background(), "task-1", domain.Failed)
	if !errors.Is(err, errFirst) || !errors.Is(err, errThird) {
		t.Errorf("errors are not joined: %v", err)
	}
	if diff := cmp.Diff([]string{"first:task-1", "second:task-1:FAILED", "third:task-1"}, ran); diff != "" {
		t.Errorf("hooks (-want +got):\n%s", diff)
	}

	ran = []string{}
	testee.Run(context.Background(), "task-2", domain.Done)
	if diff := cmp.Diff([]string{"first:task-2", "second:task-2:DONE", "third:task-2"}, ran); diff != "" {
		t.Errorf("hooks for another task (-want +got):\n%s", diff)
	}

	if err := taskutil.NewCompletionHooks().Run(context.Background(), "task-1", domain.Done); err != nil {
		t.Errorf("no hooks: %v", err)
	}
}
