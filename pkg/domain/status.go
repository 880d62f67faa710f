package domain

import (
	"fmt"
	"strings"
)

type ExecutionStatus string

const (
	// Created, not dispatched yet.
	Undetermined ExecutionStatus = "UNDETERMINED"

	// Handed over to an executor (or, for jobs, started), waiting for the backend to run it.
	QueuedActive ExecutionStatus = "QUEUED_ACTIVE"

	// The backend reports that it is running.
	Running ExecutionStatus = "RUNNING"

	// Paused by a command. It can be resumed.
	Suspended ExecutionStatus = "SUSPENDED"

	// Finished successfully.
	Done ExecutionStatus = "DONE"

	// Finished insuccessfully, or broken by an error of the orchestrator.
	Failed ExecutionStatus = "FAILED"

	// Stopped by a command.
	Cancelled ExecutionStatus = "CANCELLED"
)

func (s ExecutionStatus) String() string {
	return string(s)
}

// Terminal reports whether no more transitions can start from s.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case Done, Failed, Cancelled:
		return true
	default:
		return false
	}
}

// Active reports whether s is owned by an executor (dispatched and not paused).
func (s ExecutionStatus) Active() bool {
	switch s {
	case QueuedActive, Running:
		return true
	default:
		return false
	}
}

// In reports whether s is one of candidates.
func (s ExecutionStatus) In(candidates ...ExecutionStatus) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}

func TerminalStatuses() []ExecutionStatus {
	return []ExecutionStatus{Done, Failed, Cancelled}
}

func AsExecutionStatus(status string) (ExecutionStatus, error) {
	switch s := ExecutionStatus(strings.ToUpper(status)); s {
	case Undetermined, QueuedActive, Running, Suspended, Done, Failed, Cancelled:
		return s, nil
	default:
		return "", fmt.Errorf("'%s' is not ExecutionStatus", status)
	}
}

// CanTransit tells whether an observed status change from -> to is legal.
//
// This table gates updates reported by executors (out-of-band progress).
// Commands have their own, narrower, sets of source statuses.
//
// Staying in the same status is always allowed.
func CanTransit(from, to ExecutionStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case Undetermined:
		return to.In(QueuedActive, Cancelled, Failed)
	case QueuedActive:
		return to.In(Running, Suspended, Done, Failed, Cancelled)
	case Running:
		return to.In(Suspended, Done, Failed, Cancelled)
	case Suspended:
		return to.In(QueuedActive, Running, Cancelled, Failed)
	default:
		// terminal
		return false
	}
}

// SourcesOf returns statuses which can change into to, following CanTransit.
func SourcesOf(to ExecutionStatus) []ExecutionStatus {
	sources := []ExecutionStatus{}
	for _, s := range []ExecutionStatus{Undetermined, QueuedActive, Running, Suspended, Done, Failed, Cancelled} {
		if s != to && CanTransit(s, to) {
			sources = append(sources, s)
		}
	}
	return sources
}

// NonTerminalStatuses are statuses which can still change.
func NonTerminalStatuses() []ExecutionStatus {
	return []ExecutionStatus{Undetermined, QueuedActive, Running, Suspended}
}

// AggregateStatus derives the status of a composite (group) from its members.
func AggregateStatus(members []ExecutionStatus) ExecutionStatus {
	if len(members) == 0 {
		return Undetermined
	}

	allTerminal := true
	allDone := true
	anyFailed := false
	anyRunning := false
	anySuspended := false
	anyQueued := false
	for _, s := range members {
		if !s.Terminal() {
			allTerminal = false
		}
		if s != Done {
			allDone = false
		}
		switch s {
		case Failed:
			anyFailed = true
		case Running:
			anyRunning = true
		case Suspended:
			anySuspended = true
		case QueuedActive:
			anyQueued = true
		}
	}

	switch {
	case allDone:
		return Done
	case allTerminal && anyFailed:
		return Failed
	case allTerminal:
		return Cancelled
	case anyRunning:
		return Running
	case anySuspended:
		return Suspended
	case anyQueued:
		return QueuedActive
	default:
		// some members are finished while the rest are not dispatched yet:
		// the composite is still on its way.
		for _, s := range members {
			if s.Terminal() {
				return Running
			}
		}
		return Undetermined
	}
}
