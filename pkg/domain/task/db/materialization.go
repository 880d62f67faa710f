package db

import "context"

// MaterializationInterface records workspace symlinks which are replaced with copies of their targets
// while tasks are reading them.
//
// A link is shared by every task reading it. Records outlive processes,
// so that any process finishing a task can restore links it has held.
type MaterializationInterface interface {
	// Hold records that the task reads the link.
	//
	// When no task holds the link yet, materialize is called to replace the link with a copy.
	// It returns the original target of the link, or "" when there is nothing to be restored.
	// Then, nothing is recorded.
	//
	// Holds and releases of the same link are serialized.
	//
	// # Returns
	//
	// - bool: true when the link is held by the task.
	//
	// - error: errors from materialize, or the persistence layer.
	Hold(ctx context.Context, taskId string, link string, materialize func() (target string, err error)) (bool, error)

	// Release forgets links held by the task.
	//
	// restore is called for each link which no other task holds any more, with its original target.
	// Releasing a task holding nothing does nothing.
	Release(ctx context.Context, taskId string, restore func(link string, target string) error) error
}
