package backend

import (
	"fmt"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/backend.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

// Configuration of eoflow.
//
// This type is marshalling value and mutable.
// Consider to use immutable version, `BackendConfig`.
type BackendConfigMarshall struct {
	Database  string                   `yaml:"database"`
	Sandbox   *SandboxConfigMarshall   `yaml:"sandbox"`
	Executors *ExecutorsConfigMarshall `yaml:"executors"`
	Notify    *NotifyConfigMarshall    `yaml:"notify,omitempty"`
	API       *APIConfigMarshall       `yaml:"api,omitempty"`
	Triggers  []*TriggerConfigMarshall `yaml:"triggers,omitempty"`
}

var _ Marshalled[*BackendConfig] = &BackendConfigMarshall{}

// verify configuration value and create "readonly" version of this.
//
// IT WILL PANIC if any misconfiguration is found.
func (b *BackendConfigMarshall) TrySeal() *BackendConfig {
	return b.trySeal("(root)")
}

func (b *BackendConfigMarshall) trySeal(path string) *BackendConfig {
	notify := b.Notify
	if notify == nil {
		notify = &NotifyConfigMarshall{}
	}
	api := b.API
	if api == nil {
		api = &APIConfigMarshall{}
	}

	names := map[string]struct{}{}
	triggers := make([]*TriggerConfig, 0, len(b.Triggers))
	for i, t := range b.Triggers {
		p := fmt.Sprintf("%s.triggers[%d]", path, i)
		sealed := nonnil(t, p).trySeal(p)
		if _, ok := names[sealed.name]; ok {
			panic(fmt.Sprintf("%s.name is duplicated: %s", p, sealed.name))
		}
		names[sealed.name] = struct{}{}
		triggers = append(triggers, sealed)
	}

	return &BackendConfig{
		database:  required(b.Database, path+".database"),
		sandbox:   nonnil(b.Sandbox, path+".sandbox").trySeal(path + ".sandbox"),
		executors: nonnil(b.Executors, path+".executors").trySeal(path + ".executors"),
		notify:    notify.trySeal(path + ".notify"),
		api:       api.trySeal(path + ".api"),
		triggers:  triggers,
	}
}

type SandboxConfigMarshall struct {
	Workspace *MountConfigMarshall `yaml:"workspace"`
	Store     *MountConfigMarshall `yaml:"store,omitempty"`

	// true when the store is visible to workloads at Store.Container.
	StoreMounted bool `yaml:"storeMounted,omitempty"`
}

func (s *SandboxConfigMarshall) trySeal(path string) *SandboxConfig {
	sc := &SandboxConfig{
		workspace: nonnil(s.Workspace, path+".workspace").trySeal(path + ".workspace"),
		mounted:   s.StoreMounted,
	}
	if s.Store != nil {
		sc.store = s.Store.trySeal(path + ".store")
	} else if s.StoreMounted {
		panic(path + ".store is required when storeMounted is true")
	}
	return sc
}

type MountConfigMarshall struct {
	Host string `yaml:"host"`

	// default = same as Host
	Container string `yaml:"container,omitempty"`
}

func (m *MountConfigMarshall) trySeal(path string) *MountConfig {
	host := required(m.Host, path+".host")
	container := m.Container
	if container == "" {
		container = host
	}
	return &MountConfig{host: host, container: container}
}

type ExecutorsConfigMarshall struct {
	Docker     *DockerConfigMarshall     `yaml:"docker,omitempty"`
	Kubernetes *KubernetesConfigMarshall `yaml:"kubernetes,omitempty"`
}

func (e *ExecutorsConfigMarshall) trySeal(path string) *ExecutorsConfig {
	ec := &ExecutorsConfig{}
	if e.Docker != nil {
		ec.docker = e.Docker.trySeal(path + ".docker")
	}
	if e.Kubernetes != nil {
		ec.kubernetes = e.Kubernetes.trySeal(path + ".kubernetes")
	}
	return ec
}

type DockerConfigMarshall struct {
	Host    string `yaml:"host,omitempty"`
	Network string `yaml:"network,omitempty"`
}

func (d *DockerConfigMarshall) trySeal(string) *DockerConfig {
	return &DockerConfig{host: d.Host, network: d.Network}
}

type KubernetesConfigMarshall struct {
	Kubeconfig     string               `yaml:"kubeconfig,omitempty"`
	Namespace      string               `yaml:"namespace"`
	ServiceAccount string               `yaml:"serviceAccount,omitempty"`
	Workspace      *VolumeConfigMarshall `yaml:"workspace"`
	Store          *VolumeConfigMarshall `yaml:"store,omitempty"`
}

func (k *KubernetesConfigMarshall) trySeal(path string) *KubernetesConfig {
	kc := &KubernetesConfig{
		kubeconfig:     k.Kubeconfig,
		namespace:      required(k.Namespace, path+".namespace"),
		serviceAccount: k.ServiceAccount,
		workspace:      nonnil(k.Workspace, path+".workspace").trySeal(path + ".workspace"),
	}
	if k.Store != nil {
		kc.store = k.Store.trySeal(path + ".store")
	}
	return kc
}

type VolumeConfigMarshall struct {
	Claim     string `yaml:"claim"`
	MountPath string `yaml:"mountPath"`
	ReadOnly  bool   `yaml:"readOnly,omitempty"`
}

func (v *VolumeConfigMarshall) trySeal(path string) *VolumeConfig {
	return &VolumeConfig{
		claim:     required(v.Claim, path+".claim"),
		mountPath: required(v.MountPath, path+".mountPath"),
		readOnly:  v.ReadOnly,
	}
}

type NotifyConfigMarshall struct {
	Timeout  string                  `yaml:"timeout,omitempty"`
	Webhooks []string                `yaml:"webhooks,omitempty"`
	SocketIO *SocketIOConfigMarshall `yaml:"socketio,omitempty"`
}

func (n *NotifyConfigMarshall) trySeal(path string) *NotifyConfig {
	timeout := 10 * time.Second
	if n.Timeout != "" {
		d, err := time.ParseDuration(n.Timeout)
		if err != nil {
			panic(fmt.Errorf("%s.timeout can not be parsed: %w", path, err))
		}
		timeout = d
	}

	webhooks := make([]*url.URL, 0, len(n.Webhooks))
	for i, w := range n.Webhooks {
		u, err := url.Parse(w)
		if err != nil {
			panic(fmt.Errorf("%s.webhooks[%d] can not be parsed: %w", path, i, err))
		}
		webhooks = append(webhooks, u)
	}

	nc := &NotifyConfig{timeout: timeout, webhooks: webhooks}
	if n.SocketIO != nil {
		nc.socketIO = n.SocketIO.trySeal(path + ".socketio")
	}
	return nc
}

type SocketIOConfigMarshall struct {
	URL       string `yaml:"url"`
	Namespace string `yaml:"namespace,omitempty"`
}

func (s *SocketIOConfigMarshall) trySeal(path string) *SocketIOConfig {
	ns := s.Namespace
	if ns == "" {
		ns = "/"
	}
	return &SocketIOConfig{
		url:       required(s.URL, path+".url"),
		namespace: ns,
	}
}

type APIConfigMarshall struct {
	Port    int32  `yaml:"port,omitempty"`
	SignKey string `yaml:"signKey,omitempty"`
}

func (a *APIConfigMarshall) trySeal(string) *APIConfig {
	port := a.Port
	if port == 0 {
		port = 8080
	}
	return &APIConfig{port: port, signKey: []byte(a.SignKey)}
}

type TriggerConfigMarshall struct {
	Name       string                       `yaml:"name"`
	WorkflowId string                       `yaml:"workflow"`
	Cron       string                       `yaml:"cron"`
	Principal  string                       `yaml:"principal,omitempty"`
	Inputs     map[string]map[string]string `yaml:"inputs,omitempty"`
}

func (t *TriggerConfigMarshall) trySeal(path string) *TriggerConfig {
	spec := required(t.Cron, path+".cron")
	if _, err := cron.ParseStandard(spec); err != nil {
		panic(fmt.Errorf("%s.cron can not be parsed: %w", path, err))
	}
	return &TriggerConfig{
		name:       required(t.Name, path+".name"),
		workflowId: required(t.WorkflowId, path+".workflow"),
		cron:       spec,
		principal:  t.Principal,
		inputs:     t.Inputs,
	}
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}
