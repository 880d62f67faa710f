// Package docker runs tasks as containers of a docker daemon.
package docker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/executor"
	"github.com/opst/eoflow/pkg/taskutil"
	"github.com/sirupsen/logrus"
)

const Name = "docker"

// LabelTask is the container label holding the task id.
const LabelTask = "io.github.opst.eoflow.task"

// directory in the workspace where workloads write outputs.
const outputsDir = ".eoflow"

type Config struct {
	Network string

	Workspace    taskutil.Mount
	Store        taskutil.Mount
	StoreMounted bool
}

type Docker struct {
	api    API
	config Config
	logger logrus.FieldLogger
}

var _ executor.Executor = &Docker{}
var _ executor.Observer = &Docker{}

func New(api API, config Config, logger logrus.FieldLogger) *Docker {
	return &Docker{api: api, config: config, logger: logger}
}

func (*Docker) Name() string {
	return Name
}

func (*Docker) Supports(c domain.Component) bool {
	return c.Runtime == domain.DockerRuntime
}

// Initialize checks that the daemon is reachable.
func (d *Docker) Initialize(ctx context.Context) error {
	if _, err := d.api.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon is not reachable: %w", err)
	}
	return nil
}

func (d *Docker) Close() error {
	return d.api.Close()
}

func containerName(task domain.ExecutionTask) string {
	return "eoflow-" + task.Id
}

// outputs file of the task: (in containers, on hosts)
func (d *Docker) outputsPath(task domain.ExecutionTask) (string, string) {
	if d.config.Workspace.IsZero() {
		return "", ""
	}
	return filepath.Join(d.config.Workspace.Container, outputsDir, task.Id, "outputs.json"),
		filepath.Join(d.config.Workspace.Host, outputsDir, task.Id, "outputs.json")
}

func (d *Docker) mounts() []mount.Mount {
	ms := []mount.Mount{}
	if !d.config.Workspace.IsZero() {
		ms = append(ms, mount.Mount{
			Type: mount.TypeBind, Source: d.config.Workspace.Host, Target: d.config.Workspace.Container,
		})
	}
	if d.config.StoreMounted && !d.config.Store.IsZero() {
		ms = append(ms, mount.Mount{
			Type: mount.TypeBind, Source: d.config.Store.Host, Target: d.config.Store.Container, ReadOnly: true,
		})
	}
	return ms
}

// Execute creates and starts a container for the task.
func (d *Docker) Execute(ctx context.Context, task domain.ExecutionTask, c domain.Component) (executor.Receipt, error) {
	if _, err := executor.ParseImage(c); err != nil {
		return executor.Receipt{}, err
	}

	inContainer, onHost := d.outputsPath(task)
	if onHost != "" {
		if err := os.MkdirAll(filepath.Dir(onHost), 0o777); err != nil {
			return executor.Receipt{}, err
		}
	}

	created, err := d.api.ContainerCreate(
		ctx,
		&container.Config{
			Image:  c.Image,
			Cmd:    c.Command,
			Env:    executor.Environment(task, inContainer),
			Labels: map[string]string{LabelTask: task.Id},
		},
		&container.HostConfig{
			Mounts:      d.mounts(),
			NetworkMode: container.NetworkMode(d.config.Network),
		},
		nil, nil, containerName(task),
	)
	if err != nil {
		return executor.Receipt{}, err
	}
	for _, w := range created.Warnings {
		d.logger.WithField("task", task.Id).Warn(w)
	}

	if err := d.api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		if rerr := d.api.ContainerRemove(ctx, created.ID, container.RemoveOptions{Force: true}); rerr != nil {
			d.logger.WithError(rerr).WithField("container", created.ID).Warn("failed to remove container")
		}
		return executor.Receipt{}, err
	}
	d.logger.WithFields(logrus.Fields{
		"task": task.Id, "container": created.ID, "image": c.Image,
	}).Info("container is started")
	return executor.Receipt{Executor: Name, ResourceId: created.ID}, nil
}

// Stop stops and removes the container of the task. Missing containers are ignored.
func (d *Docker) Stop(ctx context.Context, task domain.ExecutionTask, _ domain.Component) (executor.Receipt, error) {
	receipt := executor.Receipt{Executor: Name, ResourceId: task.ResourceId}
	if task.ResourceId == "" {
		return receipt, nil
	}
	if err := d.api.ContainerStop(ctx, task.ResourceId, container.StopOptions{}); err != nil && !errdefs.IsNotFound(err) {
		return receipt, err
	}
	if err := d.api.ContainerRemove(ctx, task.ResourceId, container.RemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
		return receipt, err
	}
	return receipt, nil
}

func (d *Docker) Suspend(ctx context.Context, task domain.ExecutionTask, _ domain.Component) (executor.Receipt, error) {
	receipt := executor.Receipt{Executor: Name, ResourceId: task.ResourceId}
	if task.ResourceId == "" {
		return receipt, nil
	}
	return receipt, d.api.ContainerPause(ctx, task.ResourceId)
}

func (d *Docker) Resume(ctx context.Context, task domain.ExecutionTask, _ domain.Component) (executor.Receipt, error) {
	receipt := executor.Receipt{Executor: Name, ResourceId: task.ResourceId}
	if task.ResourceId == "" {
		return receipt, nil
	}
	return receipt, d.api.ContainerUnpause(ctx, task.ResourceId)
}

// Observe inspects the container of the task.
//
// Exited containers are removed after their outputs are read.
//
// # Returns
//
// - error: domain.ErrMissing when the container does not exist.
func (d *Docker) Observe(ctx context.Context, task domain.ExecutionTask) (executor.Observation, error) {
	if task.ResourceId == "" {
		return executor.Observation{}, fmt.Errorf("%w: task %s has no container", domain.ErrMissing, task.Id)
	}
	info, err := d.api.ContainerInspect(ctx, task.ResourceId)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return executor.Observation{}, fmt.Errorf("%w: container %s", domain.ErrMissing, task.ResourceId)
		}
		return executor.Observation{}, err
	}
	if info.ContainerJSONBase == nil || info.State == nil {
		return executor.Observation{Status: domain.QueuedActive}, nil
	}

	state := info.State
	switch {
	case state.Paused:
		return executor.Observation{Status: domain.Suspended}, nil
	case state.Running || state.Restarting:
		return executor.Observation{Status: domain.Running}, nil
	case state.Status == "created":
		return executor.Observation{Status: domain.QueuedActive}, nil
	}

	// exited or dead
	obs := executor.Observation{
		Exit: &domain.TaskExit{Code: uint8(state.ExitCode), Message: state.Error},
	}
	if state.ExitCode == 0 && !state.Dead && !state.OOMKilled {
		obs.Status = domain.Done
		obs.Exit.Message = "succeeded"
		outputs, err := d.readOutputs(task)
		if err != nil {
			return executor.Observation{}, err
		}
		obs.Outputs = outputs
	} else {
		obs.Status = domain.Failed
		if state.OOMKilled {
			obs.Exit.Message = "OOMKilled"
		} else if obs.Exit.Message == "" {
			obs.Exit.Message = d.lastLogLine(ctx, task.ResourceId)
		}
	}

	if err := d.api.ContainerRemove(ctx, task.ResourceId, container.RemoveOptions{}); err != nil && !errdefs.IsNotFound(err) {
		d.logger.WithError(err).WithField("container", task.ResourceId).Warn("failed to remove container")
	}
	return obs, nil
}

func (d *Docker) readOutputs(task domain.ExecutionTask) (map[string]string, error) {
	_, onHost := d.outputsPath(task)
	if onHost == "" {
		return map[string]string{}, nil
	}
	f, err := os.Open(onHost)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()
	return executor.ReadOutputs(f)
}

// lastLogLine returns the last line which the container wrote in stderr.
func (d *Docker) lastLogLine(ctx context.Context, containerId string) string {
	logs, err := d.api.ContainerLogs(ctx, containerId, container.LogsOptions{ShowStderr: true, Tail: "20"})
	if err != nil {
		return ""
	}
	defer logs.Close()

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	if _, err := stdcopy.StdCopy(stdout, stderr, logs); err != nil {
		return ""
	}
	last := ""
	sc := bufio.NewScanner(stderr)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			last = line
		}
	}
	return last
}
