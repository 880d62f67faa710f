package main

import (
	"context"
	"fmt"
	"time"

	"github.com/opst/eoflow/cmd/loops/tasks/dispatch"
	"github.com/opst/eoflow/cmd/loops/tasks/finishing"
	"github.com/opst/eoflow/cmd/loops/tasks/monitor"
	"github.com/opst/eoflow/cmd/loops/tasks/trigger"
	eoflow "github.com/opst/eoflow/pkg"
	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/loop"
	"github.com/opst/eoflow/pkg/loop/recurring"
	"github.com/opst/eoflow/pkg/schedule"
	"github.com/sirupsen/logrus"
)

// Wrapper for monitoring loop tasks
//
//	Log the start and end of each time a task is executed. Essentially, it executes a task.
func monitorTask[T any](logger logrus.FieldLogger, task loop.Task[T]) loop.Task[T] {
	// counter for execution of the task
	var counter uint64
	return func(ctx context.Context, t T) (ret T, next loop.Next) {
		counter += 1
		timestamp := time.Now()

		l := logger.WithField("iteration", fmt.Sprintf("#0x%X", counter))
		l.Debug("task start")

		defer func() {
			l.WithFields(logrus.Fields{
				"takes": time.Since(timestamp).String(),
				"next":  next.String(),
			}).Debug("task end")
		}()

		ret, next = task(ctx, t)
		return
	}
}

// Manifest for starting a loop, which determines how the loop should behave.
type LoopManifest struct {
	Type domain.LoopType

	// Policy for the looping
	Policy recurring.Policy
}

// StartLoop runs the loop of the type in the manifest, until it breaks or ctx is done.
func StartLoop(ctx context.Context, logger logrus.FieldLogger, ef eoflow.Eoflow, manifest LoopManifest) error {
	l := logger.WithField("loop", manifest.Type.String())
	switch manifest.Type {
	case domain.Dispatch:
		return StartDispatchLoop(ctx, l, ef, manifest.Policy)
	case domain.Monitor:
		return StartMonitorLoop(ctx, l, ef, manifest.Policy)
	case domain.Finishing:
		return StartFinishingLoop(ctx, l, ef, manifest.Policy)
	case domain.Trigger:
		return StartTriggerLoop(ctx, l, ef)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownLoopType, manifest.Type)
	}
}

// Start dispatch loop
//
// Args:
//
// - ctx
//
// - logger : logger for monitoring loop.
//
// - ef : components to be used
//
// - policy
func StartDispatchLoop(ctx context.Context, logger logrus.FieldLogger, ef eoflow.Eoflow, policy recurring.Policy) error {
	_, err := loop.Start(
		ctx, dispatch.Seed(),
		monitorTask(
			logger,
			dispatch.Task(logger, ef.Jobs(), ef.Commander(), ef.Utils()).Applied(policy),
		),
	)
	return err
}

// Start monitor loop. Args are same as StartDispatchLoop.
func StartMonitorLoop(ctx context.Context, logger logrus.FieldLogger, ef eoflow.Eoflow, policy recurring.Policy) error {
	_, err := loop.Start(
		ctx, monitor.Seed(),
		monitorTask(
			logger,
			monitor.Task(logger, ef.Jobs(), ef.Commander(), ef.Executors(), ef.Outputs()).Applied(policy),
		),
	)
	return err
}

// Start finishing loop. Args are same as StartDispatchLoop.
func StartFinishingLoop(ctx context.Context, logger logrus.FieldLogger, ef eoflow.Eoflow, policy recurring.Policy) error {
	_, err := loop.Start(
		ctx, finishing.Seed(),
		monitorTask(
			logger,
			finishing.Task(logger, ef.Jobs(), ef.Commander()).Applied(policy),
		),
	)
	return err
}

// Start trigger loop. It runs the cron scheduler, so it takes no policy.
func StartTriggerLoop(ctx context.Context, logger logrus.FieldLogger, ef eoflow.Eoflow) error {
	s := schedule.New(ef.Commander(), ef.Sink(), logger)
	return trigger.Start(ctx, logger, s, ef.Triggers())
}
