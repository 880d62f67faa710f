// Package loop runs a task over and over, threading a value through iterations.
package loop

import (
	"context"
	"fmt"
	"time"
)

// Next tells Start what to do after an iteration.
//
// The zero value is Continue(0).
type Next struct {
	err      error
	quit     bool
	interval time.Duration
}

func (n Next) String() string {
	if n.err != nil {
		return fmt.Sprintf("[break] with error: %v", n.err)
	}
	if n.quit {
		return "[break] without error"
	}

	return fmt.Sprintf("[continue] interval: %s", n.interval)
}

// Continue runs the task again after the interval.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// Break ends the loop. err is returned from Start as is, and can be nil.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// Task is an iteration of a loop.
//
// It takes the value returned by the previous iteration (or the initial value),
// and returns the value for the next one.
type Task[T any] func(context.Context, T) (T, Next)

// Start runs the task until it breaks or ctx is done.
//
// # Returns
//
// - T: the value of the last iteration.
// When the task breaks with an error, it is the value returned with the error.
//
// - error: the error of Break, or ctx.Err() when ctx is done.
//
// # Example
//
// Poll a job every second until it finishes:
//
//	status, err := Start(ctx, domain.Undetermined, func(ctx context.Context, _ domain.ExecutionStatus) (domain.ExecutionStatus, Next) {
//		job, err := jobs.Get(ctx, jobId)
//		if err != nil {
//			return domain.Undetermined, Break(err)
//		}
//		if job.Status.Terminal() {
//			return job.Status, Break(nil)
//		}
//		return job.Status, Continue(time.Second)
//	})
func Start[T any](ctx context.Context, init T, task Task[T], options ...LoopOption) (T, error) {
	select {
	case <-ctx.Done():
		return init, ctx.Err()
	default:
	}

	value := init
	for {
		lc := &loopConfig{ctx: ctx}
		for _, opt := range options {
			lc = opt(lc)
		}

		v, n := func() (T, Next) {
			if lc.deferred != nil {
				defer lc.deferred()
			}
			return task(lc.ctx, value)
		}()

		if n.err != nil {
			return v, n.err
		}
		if n.quit {
			return v, nil
		}
		value = v

		timer := time.NewTimer(n.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return value, ctx.Err()
		case <-timer.C:
		}
	}
}

type loopConfig struct {
	ctx      context.Context
	deferred func()
}

// LoopOption configures each iteration.
type LoopOption func(*loopConfig) *loopConfig

// WithTimeout limits each iteration to d.
//
// The context passed to the task is cancelled after d, but the loop goes on.
func WithTimeout(d time.Duration) LoopOption {
	return func(lc *loopConfig) *loopConfig {
		ctx, cancel := context.WithTimeout(lc.ctx, d)
		return &loopConfig{
			ctx: ctx,
			deferred: func() {
				if lc.deferred != nil {
					defer lc.deferred()
				}
				cancel()
			},
		}
	}
}
