package kubernetes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	kubetypes "k8s.io/apimachinery/pkg/types"
	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// subset of k8s.Interface
type K8sClient interface {
	GetJob(ctx context.Context, namespace string, name string) (*kubebatch.Job, error)
	CreateJob(ctx context.Context, namespace string, spec *kubebatch.Job) (*kubebatch.Job, error)
	DeleteJob(ctx context.Context, namespace string, name string) error

	// SuspendJob sets spec.suspend of the job.
	SuspendJob(ctx context.Context, namespace string, name string, suspend bool) error

	FindPods(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error)
}

// A wrapper for k8s.Interface; because it does not prefer method chain-style invocations of that type.
type k8sClient struct {
	client k8s.Interface
}

var _ K8sClient = &k8sClient{}

func WrapK8sClient(c k8s.Interface) K8sClient {
	return &k8sClient{client: c}
}

func (k *k8sClient) CreateJob(ctx context.Context, namespace string, job *kubebatch.Job) (*kubebatch.Job, error) {
	return k.client.BatchV1().Jobs(namespace).Create(ctx, job, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) GetJob(ctx context.Context, namespace string, name string) (*kubebatch.Job, error) {
	return k.client.BatchV1().Jobs(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) DeleteJob(ctx context.Context, namespace string, name string) error {
	foreground := kubeapimeta.DeletePropagationForeground
	zero := int64(0)
	return k.client.BatchV1().Jobs(namespace).Delete(ctx, name, kubeapimeta.DeleteOptions{
		GracePeriodSeconds: &zero,
		PropagationPolicy:  &foreground,
	})
}

func (k *k8sClient) SuspendJob(ctx context.Context, namespace string, name string, suspend bool) error {
	patch := fmt.Sprintf(`{"spec":{"suspend":%t}}`, suspend)
	_, err := k.client.BatchV1().Jobs(namespace).Patch(
		ctx, name, kubetypes.MergePatchType, []byte(patch), kubeapimeta.PatchOptions{},
	)
	return err
}

func (k *k8sClient) FindPods(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error) {
	resp, err := k.client.CoreV1().Pods(namespace).List(ctx, kubeapimeta.ListOptions{
		LabelSelector: labelSelector,
	})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Connect returns a clientset.
//
// It searches kubeconfig from (later wins)
//
// - `~/.kube/config`
//
// - environmental variable `KUBECONFIG`
//
// - the parameter kubeconfig
//
// When no files are found, it tries to use in-cluster config.
func Connect(kubeconfig string) (*k8s.Clientset, error) {
	path := ""
	if home := homedir.HomeDir(); home != "" {
		path = filepath.Join(home, ".kube", "config")
	}
	if k := os.Getenv("KUBECONFIG"); k != "" {
		path = k
	}
	if kubeconfig != "" {
		path = kubeconfig
	}

	if path != "" {
		stat, err := os.Stat(path)
		if os.IsNotExist(err) || (err == nil && stat.IsDir()) {
			path = ""
		}
	}

	var config *rest.Config
	var err error
	if path == "" {
		config, err = rest.InClusterConfig()
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", path)
	}
	if err != nil {
		return nil, err
	}
	return k8s.NewForConfig(config)
}
