package backend

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadBackendConfig loads eoflow config from a file.
func LoadBackendConfig(filepath string) (*BackendConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

// Unmarshal parses yaml and seals it.
//
// Misconfigurations are returned as errors.
func Unmarshal(conf []byte) (out *BackendConfig, err error) {
	var _out *BackendConfigMarshall
	if err = yaml.Unmarshal(conf, &_out); err != nil {
		return nil, err
	}
	if _out == nil {
		return nil, fmt.Errorf("config is empty")
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("misconfiguration: %v", r)
		}
	}()
	out = TrySeal[*BackendConfig](_out)
	return out, nil
}
