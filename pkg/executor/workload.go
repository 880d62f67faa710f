package executor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/opst/eoflow/pkg/domain"
)

var ErrInvalidImage = errors.New("invalid image reference")

const (
	EnvTaskId  = "EOFLOW_TASK_ID"
	EnvJobId   = "EOFLOW_JOB_ID"
	EnvOutputs = "EOFLOW_OUTPUTS"

	// prefix of environment variables carrying inputs.
	EnvInputPrefix = "EOFLOW_INPUT_"
)

// ParseImage validates the image of the component.
func ParseImage(c domain.Component) (name.Reference, error) {
	if c.Image == "" {
		return nil, fmt.Errorf("%w: component %s has no image", ErrInvalidImage, c.Id)
	}
	ref, err := name.ParseReference(c.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidImage, c.Image, err)
	}
	return ref, nil
}

// Environment returns environment variables passed to the workload of the task, sorted by name.
//
// outputsPath is where the workload writes its outputs, as a JSON object of strings.
func Environment(task domain.ExecutionTask, outputsPath string) []string {
	env := []string{
		EnvTaskId + "=" + task.Id,
		EnvJobId + "=" + task.JobId,
	}
	if outputsPath != "" {
		env = append(env, EnvOutputs+"="+outputsPath)
	}
	for k, v := range task.Inputs {
		env = append(env, EnvInputPrefix+envName(k)+"="+v)
	}
	sort.Strings(env)
	return env
}

func envName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case 'a' <= r && r <= 'z':
			return r - 'a' + 'A'
		case 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}

// ReadOutputs reads outputs written by a workload.
func ReadOutputs(r io.Reader) (map[string]string, error) {
	outputs := map[string]string{}
	if err := json.NewDecoder(r).Decode(&outputs); err != nil {
		if errors.Is(err, io.EOF) {
			return outputs, nil
		}
		return nil, err
	}
	return outputs, nil
}
