// Package output has handlers of outputs reported by tasks.
package output

import (
	"context"
	"fmt"
	"os"

	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/handler"
)

// HostPather maps container paths to host paths. *taskutil.Sandbox implements this.
type HostPather interface {
	HostPath(containerPath string) (string, error)
}

// HostPath rewrites file outputs from container paths to host paths.
type HostPath struct {
	Sandbox HostPather
}

var _ handler.Handler[domain.Output] = HostPath{}

func (HostPath) Kind() string  { return string(domain.FileOutput) }
func (HostPath) Priority() int { return 0 }

func (h HostPath) Handle(_ context.Context, o domain.Output) (domain.Output, error) {
	p, err := h.Sandbox.HostPath(o.Value)
	if err != nil {
		return o, fmt.Errorf("output %s of task %s: %w", o.Name, o.TaskId, err)
	}
	o.Value = p
	return o, nil
}

// Exists verifies that file outputs exist.
type Exists struct{}

var _ handler.Handler[domain.Output] = Exists{}

func (Exists) Kind() string  { return string(domain.FileOutput) }
func (Exists) Priority() int { return 10 }

func (Exists) Handle(_ context.Context, o domain.Output) (domain.Output, error) {
	if _, err := os.Stat(o.Value); err != nil {
		return o, fmt.Errorf("output %s of task %s: %w", o.Name, o.TaskId, err)
	}
	return o, nil
}

// Pipelines returns pipelines of the default output handlers.
func Pipelines(sandbox HostPather) *handler.Pipelines[domain.Output] {
	return handler.New[domain.Output](HostPath{Sandbox: sandbox}, Exists{})
}
