// Package trigger launches jobs by cron triggers.
package trigger

import (
	"context"
	"errors"

	"github.com/opst/eoflow/pkg/schedule"
	"github.com/sirupsen/logrus"
)

// Scheduler is what trigger loop needs. *schedule.Scheduler implements this.
type Scheduler interface {
	Schedule(schedule.Trigger) error
	Run(ctx context.Context) error
}

// Start registers triggers to the scheduler and runs it until ctx is done.
//
// # Returns
//
// - error: errors of broken triggers, before the scheduler starts.
// Otherwise, nil when ctx is cancelled, or the cause of ctx being done.
func Start(ctx context.Context, logger logrus.FieldLogger, s Scheduler, triggers []schedule.Trigger) error {
	for _, t := range triggers {
		if err := s.Schedule(t); err != nil {
			return err
		}
	}
	logger.WithField("triggers", len(triggers)).Info("scheduler starts")

	err := s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
