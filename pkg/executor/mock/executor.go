package mock

import (
	"context"
	"errors"

	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/executor"
)

type Call struct {
	Task      domain.ExecutionTask
	Component domain.Component
}

// Executor is a mock of executor.Executor and executor.Observer.
type Executor struct {
	name string

	Impl struct {
		Supports   func(domain.Component) bool
		Initialize func(context.Context) error
		Close      func() error
		Execute    func(context.Context, domain.ExecutionTask, domain.Component) (executor.Receipt, error)
		Stop       func(context.Context, domain.ExecutionTask, domain.Component) (executor.Receipt, error)
		Suspend    func(context.Context, domain.ExecutionTask, domain.Component) (executor.Receipt, error)
		Resume     func(context.Context, domain.ExecutionTask, domain.Component) (executor.Receipt, error)
		Observe    func(context.Context, domain.ExecutionTask) (executor.Observation, error)
	}

	Calls struct {
		Initialize int
		Close      int
		Execute    []Call
		Stop       []Call
		Suspend    []Call
		Resume     []Call
		Observe    []domain.ExecutionTask
	}
}

func New(name string) *Executor {
	return &Executor{name: name}
}

var _ executor.Executor = &Executor{}
var _ executor.Observer = &Executor{}

func (m *Executor) Name() string {
	return m.name
}

func (m *Executor) Supports(c domain.Component) bool {
	if m.Impl.Supports != nil {
		return m.Impl.Supports(c)
	}
	return false
}

func (m *Executor) Initialize(ctx context.Context) error {
	m.Calls.Initialize += 1
	if m.Impl.Initialize != nil {
		return m.Impl.Initialize(ctx)
	}
	return nil
}

func (m *Executor) Close() error {
	m.Calls.Close += 1
	if m.Impl.Close != nil {
		return m.Impl.Close()
	}
	return nil
}

func (m *Executor) Execute(ctx context.Context, t domain.ExecutionTask, c domain.Component) (executor.Receipt, error) {
	m.Calls.Execute = append(m.Calls.Execute, Call{Task: t, Component: c})
	if m.Impl.Execute != nil {
		return m.Impl.Execute(ctx, t, c)
	}
	panic(errors.New("it should not be called"))
}

func (m *Executor) Stop(ctx context.Context, t domain.ExecutionTask, c domain.Component) (executor.Receipt, error) {
	m.Calls.Stop = append(m.Calls.Stop, Call{Task: t, Component: c})
	if m.Impl.Stop != nil {
		return m.Impl.Stop(ctx, t, c)
	}
	panic(errors.New("it should not be called"))
}

func (m *Executor) Suspend(ctx context.Context, t domain.ExecutionTask, c domain.Component) (executor.Receipt, error) {
	m.Calls.Suspend = append(m.Calls.Suspend, Call{Task: t, Component: c})
	if m.Impl.Suspend != nil {
		return m.Impl.Suspend(ctx, t, c)
	}
	panic(errors.New("it should not be called"))
}

func (m *Executor) Resume(ctx context.Context, t domain.ExecutionTask, c domain.Component) (executor.Receipt, error) {
	m.Calls.Resume = append(m.Calls.Resume, Call{Task: t, Component: c})
	if m.Impl.Resume != nil {
		return m.Impl.Resume(ctx, t, c)
	}
	panic(errors.New("it should not be called"))
}

func (m *Executor) Observe(ctx context.Context, t domain.ExecutionTask) (executor.Observation, error) {
	m.Calls.Observe = append(m.Calls.Observe, t)
	if m.Impl.Observe != nil {
		return m.Impl.Observe(ctx, t)
	}
	panic(errors.New("it should not be called"))
}
