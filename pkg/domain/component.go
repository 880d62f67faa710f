package domain

// Port is an input (source) or output (target) slot of a component.
type Port struct {
	Name     string
	DataKind string

	// How many values the port takes or produces. Negative means unknown.
	Cardinality int
}

// Runtime names the kind of backend which a component needs.
type Runtime string

const (
	DockerRuntime     Runtime = "docker"
	KubernetesRuntime Runtime = "kubernetes"

	// for data sources and groups, which have no workload of their own.
	NoRuntime Runtime = ""
)

// Component is a descriptor of what a workflow node does.
type Component struct {
	Id    string
	Label string
	Kind  ComponentKind

	Runtime Runtime

	// Container image, for Docker and Kubernetes runtimes.
	Image   string
	Command []string

	// Input ports.
	Sources []Port

	// Output ports.
	Targets []Port
}

func (c *Component) Source(name string) (Port, bool) {
	for _, p := range c.Sources {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

func (c *Component) Target(name string) (Port, bool) {
	for _, p := range c.Targets {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}
