package domain_test

import (
	"errors"
	"testing"

	"github.com/opst/eoflow/pkg/domain"
)

func TestAsExecutionStatus(t *testing.T) {
	for _, s := range []string{
		"UNDETERMINED", "queued_active", "Running", "SUSPENDED", "done", "FAILED", "cancelled",
	} {
		t.Run("it accepts "+s, func(t *testing.T) {
			if _, err := domain.AsExecutionStatus(s); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	t.Run("it rejects unknown status", func(t *testing.T) {
		if _, err := domain.AsExecutionStatus("paused"); err == nil {
			t.Error("expected error, but nil")
		}
	})
}

func TestCanTransit(t *testing.T) {
	all := []domain.ExecutionStatus{
		domain.Undetermined, domain.QueuedActive, domain.Running, domain.Suspended,
		domain.Done, domain.Failed, domain.Cancelled,
	}

	allowed := map[domain.ExecutionStatus][]domain.ExecutionStatus{
		domain.Undetermined: {domain.QueuedActive, domain.Cancelled, domain.Failed},
		domain.QueuedActive: {domain.Running, domain.Suspended, domain.Done, domain.Failed, domain.Cancelled},
		domain.Running:      {domain.Suspended, domain.Done, domain.Failed, domain.Cancelled},
		domain.Suspended:    {domain.QueuedActive, domain.Running, domain.Cancelled, domain.Failed},
	}

	for _, from := range all {
		for _, to := range all {
			expected := from == to || to.In(allowed[from]...)
			if actual := domain.CanTransit(from, to); actual != expected {
				t.Errorf("CanTransit(%s, %s) = %v, expected %v", from, to, actual, expected)
			}
		}
	}
}

func TestAggregateStatus(t *testing.T) {
	type When []domain.ExecutionStatus
	type Then domain.ExecutionStatus

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			actual := domain.AggregateStatus(when)
			if actual != domain.ExecutionStatus(then) {
				t.Errorf("AggregateStatus(%v) = %s, expected %s", when, actual, then)
			}
		}
	}

	t.Run("empty is undetermined", theory(When{}, Then(domain.Undetermined)))
	t.Run("all done is done", theory(
		When{domain.Done, domain.Done}, Then(domain.Done),
	))
	t.Run("all terminal with failure is failed", theory(
		When{domain.Done, domain.Failed, domain.Cancelled}, Then(domain.Failed),
	))
	t.Run("all terminal without failure is cancelled", theory(
		When{domain.Done, domain.Cancelled}, Then(domain.Cancelled),
	))
	t.Run("running wins over suspended", theory(
		When{domain.Suspended, domain.Running, domain.Undetermined}, Then(domain.Running),
	))
	t.Run("suspended wins over queued", theory(
		When{domain.QueuedActive, domain.Suspended}, Then(domain.Suspended),
	))
	t.Run("queued", theory(
		When{domain.Done, domain.QueuedActive, domain.Undetermined}, Then(domain.QueuedActive),
	))
	t.Run("done and undispatched members is running", theory(
		When{domain.Done, domain.Undetermined}, Then(domain.Running),
	))
	t.Run("all undispatched is undetermined", theory(
		When{domain.Undetermined, domain.Undetermined}, Then(domain.Undetermined),
	))
}

func TestAsLoopType(t *testing.T) {
	for _, s := range []string{"dispatch", "monitor", "finishing", "trigger"} {
		if _, err := domain.AsLoopType(s); err != nil {
			t.Errorf("%s: unexpected error: %v", s, err)
		}
	}
	if _, err := domain.AsLoopType("projection"); !errors.Is(err, domain.ErrUnknownLoopType) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSourcesOf(t *testing.T) {
	for to, want := range map[domain.ExecutionStatus][]domain.ExecutionStatus{
		domain.Done:         {domain.QueuedActive, domain.Running},
		domain.QueuedActive: {domain.Undetermined, domain.Suspended},
		domain.Undetermined: {},
	} {
		got := domain.SourcesOf(to)
		if len(got) != len(want) {
			t.Errorf("SourcesOf(%s) = %v, expected %v", to, got, want)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("SourcesOf(%s) = %v, expected %v", to, got, want)
				break
			}
		}
	}
}

func TestStatusMismatch(t *testing.T) {
	var err error = &domain.StatusMismatch{
		Current: domain.Cancelled, Expected: []domain.ExecutionStatus{domain.Running},
	}
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("%v is not ErrInvalidTransition", err)
	}
}
