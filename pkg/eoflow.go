package eoflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/opst/eoflow/pkg/command"
	bconf "github.com/opst/eoflow/pkg/configs/backend"
	kpool "github.com/opst/eoflow/pkg/conn/db/postgres/pool"
	"github.com/opst/eoflow/pkg/conn/db/postgres/schema"
	"github.com/opst/eoflow/pkg/domain"
	jobdb "github.com/opst/eoflow/pkg/domain/job/db"
	jobpg "github.com/opst/eoflow/pkg/domain/job/db/postgres"
	taskdb "github.com/opst/eoflow/pkg/domain/task/db"
	taskpg "github.com/opst/eoflow/pkg/domain/task/db/postgres"
	wfdb "github.com/opst/eoflow/pkg/domain/workflow/db"
	wfpg "github.com/opst/eoflow/pkg/domain/workflow/db/postgres"
	"github.com/opst/eoflow/pkg/executor"
	"github.com/opst/eoflow/pkg/executor/docker"
	"github.com/opst/eoflow/pkg/executor/kubernetes"
	"github.com/opst/eoflow/pkg/executor/passthrough"
	"github.com/opst/eoflow/pkg/handler"
	"github.com/opst/eoflow/pkg/handler/output"
	"github.com/opst/eoflow/pkg/handler/product"
	"github.com/opst/eoflow/pkg/notify"
	"github.com/opst/eoflow/pkg/schedule"
	"github.com/opst/eoflow/pkg/taskutil"
	"github.com/sirupsen/logrus"
)

var ErrSchemaOutdated = errors.New("database schema is not up to date")

// Eoflow is a bundle of components working on a database and executors.
type Eoflow interface {
	Config() *bconf.BackendConfig

	Jobs() jobdb.JobInterface
	Tasks() taskdb.TaskInterface
	Workflows() wfdb.WorkflowInterface

	Executors() *executor.Manager
	Commander() *command.Commander
	Utils() *taskutil.Utils
	Sink() notify.Sink

	Outputs() *handler.Pipelines[domain.Output]
	Products() *handler.Pipelines[domain.Product]

	// Triggers in the configuration.
	Triggers() []schedule.Trigger

	// Close releases executors, notification channels and database connections.
	Close() error
}

type eoflow struct {
	config *bconf.BackendConfig

	pool      kpool.Pool
	jobs      jobdb.JobInterface
	tasks     taskdb.TaskInterface
	workflows wfdb.WorkflowInterface

	executors *executor.Manager
	commander *command.Commander
	utils     *taskutil.Utils
	sink      notify.Sink
	outputs   *handler.Pipelines[domain.Output]
	products  *handler.Pipelines[domain.Product]

	closers []func() error
}

var _ Eoflow = &eoflow{}

// Connectors open connections to executor backends. They are replaced in tests.
type Connectors struct {
	Docker     func(host string) (docker.API, error)
	Kubernetes func(kubeconfig string) (kubernetes.K8sClient, error)
}

// DefaultConnectors connect to real backends.
func DefaultConnectors() Connectors {
	return Connectors{
		Docker: func(host string) (docker.API, error) {
			return docker.Connect(host)
		},
		Kubernetes: func(kubeconfig string) (kubernetes.K8sClient, error) {
			cs, err := kubernetes.Connect(kubeconfig)
			if err != nil {
				return nil, err
			}
			return kubernetes.WrapK8sClient(cs), nil
		},
	}
}

// Attach connects to the database, executors and notification channels in the config.
//
// # Returns
//
// - Eoflow
//
// - error: ErrSchemaOutdated when the database is older than this binary.
// Otherwise, errors caused on connecting.
func Attach(ctx context.Context, config *bconf.BackendConfig, connectors Connectors, logger logrus.FieldLogger) (Eoflow, error) {
	e := &eoflow{config: config}
	ok := false
	defer func() {
		if !ok {
			e.Close()
		}
	}()

	pool, err := kpool.Connect(ctx, config.Database())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	e.pool = pool
	e.closers = append(e.closers, func() error { pool.Close(); return nil })

	if err := checkSchema(ctx, schema.New(pool, logger)); err != nil {
		return nil, err
	}

	e.jobs = jobpg.New(pool)
	e.tasks = taskpg.New(pool)
	e.workflows = wfpg.NewWorkflow(pool)

	e.sink, err = sinkOf(ctx, config.Notify(), e, logger)
	if err != nil {
		return nil, err
	}

	sb := config.Sandbox()
	sandbox := taskutil.NewSandbox(
		mountOf(sb.Workspace()), mountOf(sb.Store()), sb.StoreMounted(),
		taskpg.NewMaterialization(pool), logger.WithField("component", "sandbox"),
	)
	hooks := taskutil.NewCompletionHooks(sandbox.Release)

	e.executors = executor.NewManager(wfpg.NewComponent(pool), logger.WithField("component", "executor"))
	exs, err := executorsOf(config, connectors, logger)
	if err != nil {
		return nil, err
	}
	for _, ex := range exs {
		if err := e.executors.Register(ex); err != nil {
			return nil, err
		}
	}
	if err := e.executors.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("executors: %w", err)
	}
	e.closers = append(e.closers, e.executors.Close)

	e.commander = command.New(
		e.jobs, e.tasks, e.executors, e.sink,
		command.WithLogger(logger.WithField("component", "command")),
		command.WithCompletionHooks(hooks),
	)
	e.utils = taskutil.New(e.tasks, sandbox, logger.WithField("component", "taskutil"))
	e.outputs = output.Pipelines(sandbox)
	e.products = product.Pipelines()

	ok = true
	return e, nil
}

func checkSchema(ctx context.Context, s *schema.Schema) error {
	current, err := s.Version(ctx)
	if err != nil {
		return fmt.Errorf("database schema: %w", err)
	}
	latest, err := s.Latest()
	if err != nil {
		return fmt.Errorf("database schema: %w", err)
	}
	if current != latest {
		return fmt.Errorf("%w: database has %d, but %d is required", ErrSchemaOutdated, current, latest)
	}
	return nil
}

func mountOf(m *bconf.MountConfig) taskutil.Mount {
	if m == nil {
		return taskutil.Mount{}
	}
	return taskutil.Mount{Host: m.Host(), Container: m.Container()}
}

func volumeOf(v *bconf.VolumeConfig) *kubernetes.Volume {
	if v == nil {
		return nil
	}
	return &kubernetes.Volume{Claim: v.Claim(), MountPath: v.MountPath(), ReadOnly: v.ReadOnly()}
}

// executorsOf builds executors enabled in the config, in order of registration.
//
// The passthrough executor is always the first.
func executorsOf(config *bconf.BackendConfig, connectors Connectors, logger logrus.FieldLogger) ([]executor.Executor, error) {
	exs := []executor.Executor{passthrough.New()}
	sb := config.Sandbox()

	if d := config.Executors().Docker(); d != nil {
		api, err := connectors.Docker(d.Host())
		if err != nil {
			return nil, fmt.Errorf("docker: %w", err)
		}
		exs = append(exs, docker.New(api, docker.Config{
			Network:      d.Network(),
			Workspace:    mountOf(sb.Workspace()),
			Store:        mountOf(sb.Store()),
			StoreMounted: sb.StoreMounted(),
		}, logger.WithField("executor", docker.Name)))
	}

	if k := config.Executors().Kubernetes(); k != nil {
		client, err := connectors.Kubernetes(k.Kubeconfig())
		if err != nil {
			return nil, fmt.Errorf("kubernetes: %w", err)
		}
		exs = append(exs, kubernetes.New(client, kubernetes.Config{
			Namespace:      k.Namespace(),
			ServiceAccount: k.ServiceAccount(),
			Workspace:      volumeOf(k.Workspace()),
			Store:          volumeOf(k.Store()),
		}, logger.WithField("executor", kubernetes.Name)))
	}

	return exs, nil
}

// sinkOf builds sinks in the config. Socket.io connections are closed with e.
func sinkOf(ctx context.Context, config *bconf.NotifyConfig, e *eoflow, logger logrus.FieldLogger) (notify.Sink, error) {
	l := logger.WithField("component", "notify")
	sinks := []notify.Sink{}
	if urls := config.Webhooks(); len(urls) != 0 {
		sinks = append(sinks, notify.NewWeb(urls, config.Timeout(), l))
	}
	if s := config.SocketIO(); s != nil {
		io, err := notify.DialSocketIO(ctx, s.URL(), s.Namespace(), config.Timeout(), l)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func() error { io.Close(); return nil })
		sinks = append(sinks, io)
	}
	if len(sinks) == 0 {
		return notify.Null(), nil
	}
	return notify.Multi(sinks...), nil
}

// TriggersOf converts triggers in the config.
func TriggersOf(config *bconf.BackendConfig) []schedule.Trigger {
	triggers := make([]schedule.Trigger, 0, len(config.Triggers()))
	for _, t := range config.Triggers() {
		triggers = append(triggers, schedule.Trigger{
			Name:       t.Name(),
			WorkflowId: t.WorkflowId(),
			Cron:       t.Cron(),
			Principal:  t.Principal(),
			Inputs:     t.Inputs(),
		})
	}
	return triggers
}

func (e *eoflow) Config() *bconf.BackendConfig {
	return e.config
}

func (e *eoflow) Jobs() jobdb.JobInterface {
	return e.jobs
}

func (e *eoflow) Tasks() taskdb.TaskInterface {
	return e.tasks
}

func (e *eoflow) Workflows() wfdb.WorkflowInterface {
	return e.workflows
}

func (e *eoflow) Executors() *executor.Manager {
	return e.executors
}

func (e *eoflow) Commander() *command.Commander {
	return e.commander
}

func (e *eoflow) Utils() *taskutil.Utils {
	return e.utils
}

func (e *eoflow) Sink() notify.Sink {
	return e.sink
}

func (e *eoflow) Outputs() *handler.Pipelines[domain.Output] {
	return e.outputs
}

func (e *eoflow) Products() *handler.Pipelines[domain.Product] {
	return e.products
}

func (e *eoflow) Triggers() []schedule.Trigger {
	return TriggersOf(e.config)
}

// Close releases resources in reverse order of acquisition.
func (e *eoflow) Close() error {
	var errs []error
	for i := len(e.closers) - 1; 0 <= i; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
