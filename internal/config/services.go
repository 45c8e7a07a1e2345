package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Service describes one declaratively managed process.
type Service struct {
	// Command is the executable to run.
	Command string `json:"command" yaml:"command"`

	// Args are the command-line arguments.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`

	// Cwd is the working directory. Empty means the daemon's cwd.
	Cwd string `json:"cwd,omitempty" yaml:"cwd,omitempty"`

	// Env contains extra environment variables merged over the daemon's.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// Validate checks that the service entry is well-formed.
func (s Service) Validate() error {
	if s.Command == "" {
		return fmt.Errorf("missing required field: command")
	}
	return nil
}

// LoadServices reads a declarative services file mapping service name to
// its spawn specification. JSON is the native format; files ending in
// .yaml or .yml are decoded as YAML.
func LoadServices(path string) (map[string]Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	services := make(map[string]Service)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &services); err != nil {
			return nil, fmt.Errorf("parse services yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &services); err != nil {
			return nil, fmt.Errorf("parse services json: %w", err)
		}
	}
	return services, nil
}
