package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/opst/eoflow/pkg/domain"
	wfdb "github.com/opst/eoflow/pkg/domain/workflow/db"
	"github.com/sirupsen/logrus"
)

// Manager dispatches operations on tasks to executors.
//
// Executors are registered explicitly at process start, then Initialize seals the manager.
// After that, the manager is safe for concurrent use.
type Manager struct {
	components wfdb.ComponentInterface
	logger     logrus.FieldLogger

	mu        sync.RWMutex
	executors []Executor
	sealed    bool
}

func NewManager(components wfdb.ComponentInterface, logger logrus.FieldLogger) *Manager {
	return &Manager{components: components, logger: logger}
}

// Register adds an executor.
//
// # Returns
//
// - error: ErrDuplicatedExecutor when an executor with the same name is registered,
// ErrSealed when the manager is initialized already.
func (m *Manager) Register(ex Executor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sealed {
		return ErrSealed
	}
	for _, e := range m.executors {
		if e.Name() == ex.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicatedExecutor, ex.Name())
		}
	}
	m.executors = append(m.executors, ex)
	return nil
}

// Initialize initializes all executors in order of registration, and seals the manager.
//
// When an executor fails, executors initialized so far are closed.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.executors {
		if err := e.Initialize(ctx); err != nil {
			for _, done := range m.executors[:i] {
				if cerr := done.Close(); cerr != nil {
					m.logger.WithError(cerr).WithField("executor", done.Name()).Warn("failed to close executor")
				}
			}
			return fmt.Errorf("initializing executor %s: %w", e.Name(), err)
		}
		m.logger.WithField("executor", e.Name()).Info("executor is initialized")
	}
	m.sealed = true
	return nil
}

// Close closes all executors.
func (m *Manager) Close() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for _, e := range m.executors {
		if err := e.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing executor %s: %w", e.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Names returns names of executors in order of registration.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.executors))
	for _, e := range m.executors {
		names = append(names, e.Name())
	}
	return names
}

// Select returns the executor supporting the component.
//
// When more than one executors support it, the first registered one is chosen.
func (m *Manager) Select(comp domain.Component) (Executor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var selected Executor
	for _, e := range m.executors {
		if !e.Supports(comp) {
			continue
		}
		if selected != nil {
			m.logger.WithFields(logrus.Fields{
				"component": comp.Id,
				"selected":  selected.Name(),
				"ignored":   e.Name(),
			}).Warn("more than one executors support the component")
			continue
		}
		selected = e
	}
	if selected == nil {
		return nil, fmt.Errorf(
			"%w: component %s (kind: %s, runtime: %s)",
			ErrNoExecutor, comp.Id, comp.Kind, comp.Runtime,
		)
	}
	return selected, nil
}

func (m *Manager) byName(name string) Executor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.executors {
		if e.Name() == name {
			return e
		}
	}
	return nil
}

type operation func(Executor, context.Context, domain.ExecutionTask, domain.Component) (Receipt, error)

// dispatch resolves the component of the task and runs op with an executor.
//
// The executor which accepted the task is preferred, if any.
func (m *Manager) dispatch(ctx context.Context, task domain.ExecutionTask, op operation) (Receipt, error) {
	comp, err := m.components.Get(ctx, task.ComponentId)
	if err != nil {
		return Receipt{}, err
	}

	var ex Executor
	if task.Executor != "" {
		ex = m.byName(task.Executor)
	}
	if ex == nil {
		if ex, err = m.Select(comp); err != nil {
			return Receipt{}, err
		}
	}

	r, err := op(ex, ctx, task, comp)
	if err != nil {
		return Receipt{}, err
	}
	if r.Executor == "" {
		r.Executor = ex.Name()
	}
	return r, nil
}

func (m *Manager) Execute(ctx context.Context, task domain.ExecutionTask) (Receipt, error) {
	return m.dispatch(ctx, task, Executor.Execute)
}

func (m *Manager) Stop(ctx context.Context, task domain.ExecutionTask) (Receipt, error) {
	return m.dispatch(ctx, task, Executor.Stop)
}

func (m *Manager) Suspend(ctx context.Context, task domain.ExecutionTask) (Receipt, error) {
	return m.dispatch(ctx, task, Executor.Suspend)
}

func (m *Manager) Resume(ctx context.Context, task domain.ExecutionTask) (Receipt, error) {
	return m.dispatch(ctx, task, Executor.Resume)
}

// Observe asks the executor which accepted the task about its progress.
//
// # Returns
//
// - error: ErrNoExecutor when the executor is not registered,
// ErrNotObservable when it is not an Observer.
func (m *Manager) Observe(ctx context.Context, task domain.ExecutionTask) (Observation, error) {
	ex := m.byName(task.Executor)
	if ex == nil {
		return Observation{}, fmt.Errorf("%w: %s (task %s)", ErrNoExecutor, task.Executor, task.Id)
	}
	obs, ok := ex.(Observer)
	if !ok {
		return Observation{}, fmt.Errorf("%w: %s", ErrNotObservable, ex.Name())
	}
	return obs.Observe(ctx, task)
}
