package backend

import (
	"net/url"
	"time"
)

// BackendConfig is a configuration shared by eoflowd and loops.
//
// To get `BackendConfig` instance, use `BackendConfigMarshall.TrySeal()` or `Unmarshal`.
type BackendConfig struct {
	database  string
	sandbox   *SandboxConfig
	executors *ExecutorsConfig
	notify    *NotifyConfig
	api       *APIConfig
	triggers  []*TriggerConfig
}

// Connection string for database.
func (c *BackendConfig) Database() string {
	return c.database
}

func (c *BackendConfig) Sandbox() *SandboxConfig {
	return c.sandbox
}

func (c *BackendConfig) Executors() *ExecutorsConfig {
	return c.executors
}

func (c *BackendConfig) Notify() *NotifyConfig {
	return c.notify
}

func (c *BackendConfig) API() *APIConfig {
	return c.api
}

// Cron triggers. Empty when nothing is scheduled.
func (c *BackendConfig) Triggers() []*TriggerConfig {
	return c.triggers
}

// SandboxConfig tells where tasks can read and write.
type SandboxConfig struct {
	workspace *MountConfig
	store     *MountConfig
	mounted   bool
}

// Directory shared by tasks of jobs.
func (s *SandboxConfig) Workspace() *MountConfig {
	return s.workspace
}

// Data store of products. nil when not configured.
func (s *SandboxConfig) Store() *MountConfig {
	return s.store
}

// true when the store is visible to workloads.
func (s *SandboxConfig) StoreMounted() bool {
	return s.mounted
}

// MountConfig is a directory seen from the host and from containers.
type MountConfig struct {
	host      string
	container string
}

func (m *MountConfig) Host() string {
	return m.host
}

func (m *MountConfig) Container() string {
	return m.container
}

// ExecutorsConfig enables executors. Disabled ones are nil.
//
// Executors are registered in the order of docker, then kubernetes.
type ExecutorsConfig struct {
	docker     *DockerConfig
	kubernetes *KubernetesConfig
}

func (e *ExecutorsConfig) Docker() *DockerConfig {
	return e.docker
}

func (e *ExecutorsConfig) Kubernetes() *KubernetesConfig {
	return e.kubernetes
}

type DockerConfig struct {
	host    string
	network string
}

// Docker daemon to connect. Empty means the environment (DOCKER_HOST etc.).
func (d *DockerConfig) Host() string {
	return d.host
}

func (d *DockerConfig) Network() string {
	return d.network
}

type KubernetesConfig struct {
	kubeconfig     string
	namespace      string
	serviceAccount string
	workspace      *VolumeConfig
	store          *VolumeConfig
}

// Path to kubeconfig. Empty means in-cluster configuration.
func (k *KubernetesConfig) Kubeconfig() string {
	return k.kubeconfig
}

func (k *KubernetesConfig) Namespace() string {
	return k.namespace
}

func (k *KubernetesConfig) ServiceAccount() string {
	return k.serviceAccount
}

func (k *KubernetesConfig) Workspace() *VolumeConfig {
	return k.workspace
}

// nil when not configured.
func (k *KubernetesConfig) Store() *VolumeConfig {
	return k.store
}

// VolumeConfig is a PersistentVolumeClaim mounted to workloads.
type VolumeConfig struct {
	claim     string
	mountPath string
	readOnly  bool
}

func (v *VolumeConfig) Claim() string {
	return v.claim
}

func (v *VolumeConfig) MountPath() string {
	return v.mountPath
}

func (v *VolumeConfig) ReadOnly() bool {
	return v.readOnly
}

type NotifyConfig struct {
	timeout  time.Duration
	webhooks []*url.URL
	socketIO *SocketIOConfig
}

// Timeout of each delivery. default = 10s
func (n *NotifyConfig) Timeout() time.Duration {
	return n.timeout
}

func (n *NotifyConfig) Webhooks() []*url.URL {
	return n.webhooks
}

// nil when not configured.
func (n *NotifyConfig) SocketIO() *SocketIOConfig {
	return n.socketIO
}

type SocketIOConfig struct {
	url       string
	namespace string
}

func (s *SocketIOConfig) URL() string {
	return s.url
}

// default = "/"
func (s *SocketIOConfig) Namespace() string {
	return s.namespace
}

type APIConfig struct {
	port    int32
	signKey []byte
}

func (a *APIConfig) Port() int32 {
	return a.port
}

// HMAC key to verify bearer tokens.
func (a *APIConfig) SignKey() []byte {
	return a.signKey
}

type TriggerConfig struct {
	name       string
	workflowId string
	cron       string
	principal  string
	inputs     map[string]map[string]string
}

func (t *TriggerConfig) Name() string {
	return t.name
}

func (t *TriggerConfig) WorkflowId() string {
	return t.workflowId
}

func (t *TriggerConfig) Cron() string {
	return t.cron
}

func (t *TriggerConfig) Principal() string {
	return t.principal
}

// Inputs given to the job, keyed by node id then input name.
func (t *TriggerConfig) Inputs() map[string]map[string]string {
	return t.inputs
}
