// Package kubernetes runs tasks as batch/v1 Jobs.
package kubernetes

import (
	"context"
	"fmt"
	"strings"

	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/executor"
	"github.com/opst/eoflow/pkg/utils"
	"github.com/sirupsen/logrus"
	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const Name = "kubernetes"

const (
	LabelTask = "eoflow.opst.github.io/task"
	LabelJob  = "eoflow.opst.github.io/job"
)

// name of the container running the component.
const mainContainer = "main"

// workloads report outputs as termination messages.
const terminationLog = "/dev/termination-log"

// Volume is a PVC mounted into workers.
type Volume struct {
	Claim     string
	MountPath string
	ReadOnly  bool
}

type Config struct {
	Namespace      string
	ServiceAccount string

	Workspace *Volume
	Store     *Volume
}

type Kubernetes struct {
	client K8sClient
	config Config
	logger logrus.FieldLogger
}

var _ executor.Executor = &Kubernetes{}
var _ executor.Observer = &Kubernetes{}

func New(client K8sClient, config Config, logger logrus.FieldLogger) *Kubernetes {
	return &Kubernetes{client: client, config: config, logger: logger}
}

func (*Kubernetes) Name() string {
	return Name
}

func (*Kubernetes) Supports(c domain.Component) bool {
	return c.Runtime == domain.KubernetesRuntime
}

// Initialize checks that the namespace is accessible.
func (k *Kubernetes) Initialize(ctx context.Context) error {
	if _, err := k.client.FindPods(ctx, k.config.Namespace, LabelTask); err != nil {
		return fmt.Errorf("namespace %s is not accessible: %w", k.config.Namespace, err)
	}
	return nil
}

func (*Kubernetes) Close() error {
	return nil
}

func jobName(task domain.ExecutionTask) string {
	return "eoflow-" + strings.ToLower(task.Id)
}

func (k *Kubernetes) volumes() ([]kubecore.Volume, []kubecore.VolumeMount) {
	vols := []kubecore.Volume{}
	mounts := []kubecore.VolumeMount{}
	for _, nv := range []struct {
		name string
		vol  *Volume
	}{
		{name: "workspace", vol: k.config.Workspace},
		{name: "store", vol: k.config.Store},
	} {
		v := nv.vol
		if v == nil {
			continue
		}
		vols = append(vols, kubecore.Volume{
			Name: nv.name,
			VolumeSource: kubecore.VolumeSource{
				PersistentVolumeClaim: &kubecore.PersistentVolumeClaimVolumeSource{
					ClaimName: v.Claim, ReadOnly: v.ReadOnly,
				},
			},
		})
		mounts = append(mounts, kubecore.VolumeMount{Name: nv.name, MountPath: v.MountPath, ReadOnly: v.ReadOnly})
	}
	return vols, mounts
}

// Build returns the Job running the task.
func (k *Kubernetes) Build(task domain.ExecutionTask, c domain.Component) *kubebatch.Job {
	env := []kubecore.EnvVar{}
	for _, kv := range executor.Environment(task, terminationLog) {
		name, value, _ := strings.Cut(kv, "=")
		env = append(env, kubecore.EnvVar{Name: name, Value: value})
	}
	vols, mounts := k.volumes()

	labels := map[string]string{LabelTask: task.Id, LabelJob: task.JobId}
	return &kubebatch.Job{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:      jobName(task),
			Namespace: k.config.Namespace,
			Labels:    labels,
		},
		Spec: kubebatch.JobSpec{
			BackoffLimit: utils.Ref[int32](0),
			Suspend:      utils.Ref(false),
			Template: kubecore.PodTemplateSpec{
				ObjectMeta: kubeapimeta.ObjectMeta{Labels: labels},
				Spec: kubecore.PodSpec{
					RestartPolicy:      kubecore.RestartPolicyNever,
					ServiceAccountName: k.config.ServiceAccount,
					Containers: []kubecore.Container{
						{
							Name:                     mainContainer,
							Image:                    c.Image,
							Command:                  c.Command,
							Env:                      env,
							VolumeMounts:             mounts,
							TerminationMessagePath:   terminationLog,
							TerminationMessagePolicy: kubecore.TerminationMessageFallbackToLogsOnError,
						},
					},
					Volumes: vols,
				},
			},
		},
	}
}

func (k *Kubernetes) Execute(ctx context.Context, task domain.ExecutionTask, c domain.Component) (executor.Receipt, error) {
	if _, err := executor.ParseImage(c); err != nil {
		return executor.Receipt{}, err
	}
	job, err := k.client.CreateJob(ctx, k.config.Namespace, k.Build(task, c))
	if err != nil {
		if kubeerr.IsAlreadyExists(err) {
			return executor.Receipt{}, fmt.Errorf("%w: job %s", domain.ErrConflict, jobName(task))
		}
		return executor.Receipt{}, err
	}
	k.logger.WithFields(logrus.Fields{
		"task": task.Id, "job": job.Name, "namespace": k.config.Namespace,
	}).Info("job is created")
	return executor.Receipt{Executor: Name, ResourceId: job.Name}, nil
}

// Stop deletes the job of the task. Missing jobs are ignored.
func (k *Kubernetes) Stop(ctx context.Context, task domain.ExecutionTask, _ domain.Component) (executor.Receipt, error) {
	receipt := executor.Receipt{Executor: Name, ResourceId: task.ResourceId}
	if task.ResourceId == "" {
		return receipt, nil
	}
	if err := k.client.DeleteJob(ctx, k.config.Namespace, task.ResourceId); err != nil && !kubeerr.IsNotFound(err) {
		return receipt, err
	}
	return receipt, nil
}

func (k *Kubernetes) Suspend(ctx context.Context, task domain.ExecutionTask, _ domain.Component) (executor.Receipt, error) {
	return k.suspend(ctx, task, true)
}

func (k *Kubernetes) Resume(ctx context.Context, task domain.ExecutionTask, _ domain.Component) (executor.Receipt, error) {
	return k.suspend(ctx, task, false)
}

func (k *Kubernetes) suspend(ctx context.Context, task domain.ExecutionTask, suspend bool) (executor.Receipt, error) {
	receipt := executor.Receipt{Executor: Name, ResourceId: task.ResourceId}
	if task.ResourceId == "" {
		return receipt, nil
	}
	return receipt, k.client.SuspendJob(ctx, k.config.Namespace, task.ResourceId, suspend)
}

// Observe reads the progress of the job of the task.
//
// # Returns
//
// - error: domain.ErrMissing when the job does not exist.
func (k *Kubernetes) Observe(ctx context.Context, task domain.ExecutionTask) (executor.Observation, error) {
	if task.ResourceId == "" {
		return executor.Observation{}, fmt.Errorf("%w: task %s has no job", domain.ErrMissing, task.Id)
	}
	job, err := k.client.GetJob(ctx, k.config.Namespace, task.ResourceId)
	if err != nil {
		if kubeerr.IsNotFound(err) {
			return executor.Observation{}, fmt.Errorf("%w: job %s", domain.ErrMissing, task.ResourceId)
		}
		return executor.Observation{}, err
	}

	pods := []kubecore.Pod{}
	if job.Spec.Selector != nil {
		if ps, err := k.client.FindPods(
			ctx, k.config.Namespace, kubeapimeta.FormatLabelSelector(job.Spec.Selector),
		); err == nil {
			pods = ps
		} else {
			k.logger.WithError(err).WithField("job", job.Name).Warn("failed to list pods")
		}
	}
	w := &worker{job: job, pods: pods}

	obs := executor.Observation{Status: w.Status()}
	if !obs.Status.Terminal() {
		return obs, nil
	}

	term := w.Terminated(mainContainer)
	if term == nil {
		// no exit codes. e.g., the job is deleted or has exceeded its deadline.
		code := uint8(0)
		if obs.Status != domain.Done {
			code = 255
		}
		obs.Exit = &domain.TaskExit{Code: code, Message: w.FailureReason()}
	} else {
		obs.Exit = &domain.TaskExit{Code: uint8(term.ExitCode), Message: term.Message}
		if obs.Exit.Message == "" {
			obs.Exit.Message = term.Reason
		}
	}
	if obs.Status != domain.Done {
		return obs, nil
	}

	obs.Exit.Message = "succeeded"
	obs.Outputs = map[string]string{}
	if term != nil && term.Message != "" {
		outputs, err := executor.ReadOutputs(strings.NewReader(term.Message))
		if err != nil {
			k.logger.WithError(err).WithField("task", task.Id).Warn("termination message is not outputs")
		} else {
			obs.Outputs = outputs
		}
	}
	return obs, nil
}
