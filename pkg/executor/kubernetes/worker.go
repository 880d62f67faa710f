package kubernetes

import (
	"github.com/opst/eoflow/pkg/domain"
	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
)

// worker is a snapshot of a job and its pods.
type worker struct {
	job  *kubebatch.Job
	pods []kubecore.Pod
}

// Status tells how the job progresses.
//
// - DONE, FAILED: the job has the condition Complete or Failed.
//
// - SUSPENDED: the job is suspended.
//
// - RUNNING: at least one pod has been started.
//
// - QUEUED_ACTIVE: no pods have been started.
func (w *worker) Status() domain.ExecutionStatus {
	for _, sc := range w.job.Status.Conditions {
		if sc.Status != kubecore.ConditionTrue {
			continue
		}
		switch sc.Type {
		case kubebatch.JobComplete:
			return domain.Done
		case kubebatch.JobFailed:
			return domain.Failed
		}
	}

	if s := w.job.Spec.Suspend; s != nil && *s {
		return domain.Suspended
	}

	for _, p := range w.pods {
		switch p.Status.Phase {
		case kubecore.PodRunning, kubecore.PodSucceeded, kubecore.PodFailed:
			return domain.Running
		}
	}
	return domain.QueuedActive
}

// Terminated returns the terminated state of the container, or nil if it is not terminated.
func (w *worker) Terminated(container string) *kubecore.ContainerStateTerminated {
	for _, p := range w.pods {
		for _, c := range p.Status.ContainerStatuses {
			if c.Name != container {
				continue
			}
			if term := c.State.Terminated; term != nil {
				return term
			}
			break
		}
	}
	return nil
}

// FailureReason returns the message of the Failed condition, if any.
func (w *worker) FailureReason() string {
	for _, sc := range w.job.Status.Conditions {
		if sc.Type == kubebatch.JobFailed && sc.Status == kubecore.ConditionTrue {
			if sc.Message != "" {
				return sc.Message
			}
			return sc.Reason
		}
	}
	return ""
}
