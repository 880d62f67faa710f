// Package schedule launches jobs periodically, by cron expressions.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opst/eoflow/pkg/domain"
	jobdb "github.com/opst/eoflow/pkg/domain/job/db"
	"github.com/opst/eoflow/pkg/notify"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Trigger launches a workflow periodically.
type Trigger struct {
	Name       string
	WorkflowId string

	// standard 5-field cron expression, or descriptors like "@daily".
	Cron string

	// principal of launched jobs
	Principal string

	// inputs of launched jobs, keyed by node id then input name.
	Inputs map[string]map[string]string
}

// Launcher creates and starts jobs. *command.Commander implements this.
type Launcher interface {
	Launch(ctx context.Context, param jobdb.JobParam) (*domain.ExecutionJob, error)
}

type Scheduler struct {
	cron     *cron.Cron
	launcher Launcher
	sink     notify.Sink
	logger   logrus.FieldLogger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]cron.EntryID
	ctx     context.Context
}

type Option func(*Scheduler) *Scheduler

// WithClock replaces the clock used for naming jobs.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) *Scheduler {
		s.now = now
		return s
	}
}

func New(launcher Launcher, sink notify.Sink, logger logrus.FieldLogger, options ...Option) *Scheduler {
	if sink == nil {
		sink = notify.Null()
	}
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		launcher: launcher,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
		entries:  map[string]cron.EntryID{},
		ctx:      context.Background(),
	}
	for _, o := range options {
		s = o(s)
	}
	return s
}

// Schedule registers the trigger. A trigger with the same name is replaced.
//
// # Returns
//
// - error: when the cron expression is invalid.
func (s *Scheduler) Schedule(t Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(t.Cron, func() { s.Fire(s.context(), t) })
	if err != nil {
		return fmt.Errorf("trigger %s: %w", t.Name, err)
	}
	if old, ok := s.entries[t.Name]; ok {
		s.cron.Remove(old)
	}
	s.entries[t.Name] = id
	s.logger.WithFields(logrus.Fields{
		"trigger": t.Name, "workflow": t.WorkflowId, "cron": t.Cron,
	}).Info("trigger is scheduled")
	return nil
}

// Unschedule removes the trigger, if any.
func (s *Scheduler) Unschedule(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
}

// Next returns when the trigger fires next. It is zero until Run.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Fire launches a job for the trigger.
//
// Errors are logged and published to the sink. They are never returned.
func (s *Scheduler) Fire(ctx context.Context, t Trigger) {
	logger := s.logger.WithFields(logrus.Fields{"trigger": t.Name, "workflow": t.WorkflowId})
	param := jobdb.JobParam{
		Name:       fmt.Sprintf("%s-%s", t.Name, s.now().UTC().Format("20060102T150405Z")),
		WorkflowId: t.WorkflowId,
		Context:    domain.ExecutionContext{Principal: t.Principal},
		Inputs:     t.Inputs,
	}

	job, err := s.launcher.Launch(ctx, param)
	if err != nil {
		logger.WithError(err).Error("failed to launch job")
		report := notify.ErrorReport{Error: err.Error()}
		if job != nil {
			report.JobId = job.Id
		}
		s.sink.Send(t.Principal, notify.TopicJobError, report)
		return
	}
	logger.WithField("job", job.Id).Info("job is launched")
}

// Run starts the scheduler, and blocks until ctx is done.
// Then, it stops the scheduler and waits for running launches.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return ctx.Err()
}

// cronLogger writes logs of cron with logrus.
type cronLogger struct {
	logger logrus.FieldLogger
}

var _ cron.Logger = cronLogger{}

func fields(keysAndValues []any) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.logger.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}
