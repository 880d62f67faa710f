package finishing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/opst/eoflow/cmd/loops/tasks/finishing"
	"github.com/opst/eoflow/cmd/loops/tasks/internal/fixture"
	"github.com/opst/eoflow/pkg/domain"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestTaskFinishing(t *testing.T) {
	type When struct {
		jobs []*domain.ExecutionJob
	}
	type Then struct {
		updated   bool
		jobStatus map[string]domain.ExecutionStatus
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			f := fixture.New(when.jobs...)
			logger, _ := logtest.NewNullLogger()

			testee := finishing.Task(logger, f.Jobs, f.Commander)
			query, updated, err := testee(context.Background(), finishing.Seed())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(finishing.Seed(), query); diff != "" {
				t.Errorf("query (-want +got):\n%s", diff)
			}
			if updated != then.updated {
				t.Errorf("updated: expected %v, got %v", then.updated, updated)
			}
			if diff := cmp.Diff(then.jobStatus, f.JobStatus); diff != "" {
				t.Errorf("job statuses (-want +got):\n%s", diff)
			}
		}
	}

	diamond := func(id string, a, b, c domain.ExecutionStatus) *domain.ExecutionJob {
		return fixture.DiamondJob(id, domain.Running, map[string]domain.ExecutionStatus{
			"task-A": a, "task-B": b, "task-C": c,
		})
	}

	t.Run("a job whose tasks are all done becomes DONE", theory(
		When{jobs: []*domain.ExecutionJob{diamond("job-1", domain.Done, domain.Done, domain.Done)}},
		Then{updated: true, jobStatus: map[string]domain.ExecutionStatus{"job-1": domain.Done}},
	))

	t.Run("a job with a failed task becomes FAILED", theory(
		When{jobs: []*domain.ExecutionJob{diamond("job-1", domain.Done, domain.Failed, domain.Cancelled)}},
		Then{updated: true, jobStatus: map[string]domain.ExecutionStatus{"job-1": domain.Failed}},
	))

	t.Run("a job with cancelled tasks becomes CANCELLED", theory(
		When{jobs: []*domain.ExecutionJob{diamond("job-1", domain.Done, domain.Cancelled, domain.Done)}},
		Then{updated: true, jobStatus: map[string]domain.ExecutionStatus{"job-1": domain.Cancelled}},
	))

	t.Run("a job with running tasks is left", theory(
		When{jobs: []*domain.ExecutionJob{diamond("job-1", domain.Done, domain.Running, domain.Done)}},
		Then{updated: false, jobStatus: map[string]domain.ExecutionStatus{}},
	))

	t.Run("a job whose group has finished but members have not is left", theory(
		When{jobs: []*domain.ExecutionJob{
			fixture.GroupJob("job-2", domain.Running, domain.Done, domain.Done, domain.Running),
		}},
		Then{updated: false, jobStatus: map[string]domain.ExecutionStatus{}},
	))

	t.Run("jobs are closed independently", theory(
		When{jobs: []*domain.ExecutionJob{
			diamond("job-1", domain.Done, domain.Running, domain.Done),
			diamond("job-2", domain.Done, domain.Done, domain.Done),
		}},
		Then{updated: true, jobStatus: map[string]domain.ExecutionStatus{"job-2": domain.Done}},
	))
}

func TestOutcome(t *testing.T) {
	for name, tc := range map[string]struct {
		statuses []domain.ExecutionStatus
		want     domain.ExecutionStatus
	}{
		"all done":  {statuses: []domain.ExecutionStatus{domain.Done, domain.Done}, want: domain.Done},
		"any fail":  {statuses: []domain.ExecutionStatus{domain.Done, domain.Failed, domain.Cancelled}, want: domain.Failed},
		"cancelled": {statuses: []domain.ExecutionStatus{domain.Cancelled, domain.Done}, want: domain.Cancelled},
	} {
		t.Run(name, func(t *testing.T) {
			job := &domain.ExecutionJob{}
			for _, s := range tc.statuses {
				job.Tasks = append(job.Tasks, domain.ExecutionTask{Status: s})
			}
			if got := finishing.Outcome(job); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestTaskFinishing_Errors(t *testing.T) {
	f := fixture.New()
	expectedErr := errors.New("fake error")
	f.Jobs.Impl.Find = func(context.Context, domain.JobFindQuery) ([]string, error) {
		return nil, expectedErr
	}
	logger, _ := logtest.NewNullLogger()

	_, updated, err := finishing.Task(logger, f.Jobs, f.Commander)(context.Background(), finishing.Seed())
	if !errors.Is(err, expectedErr) {
		t.Errorf("error: %v", err)
	}
	if updated {
		t.Errorf("updated should be false")
	}
}
