package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ToolServer describes one tool server the engine may launch during a
// run.
type ToolServer struct {
	ID      string            `yaml:"id"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Cwd     string            `yaml:"cwd,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// Manifest is the engine's tool-server manifest file.
type Manifest struct {
	ToolServers []ToolServer `yaml:"tool_servers"`
}

// LoadManifest reads the YAML tool-server manifest. A missing file is
// not an error; the engine then runs without tool servers.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tool-server manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse tool-server manifest: %w", err)
	}
	return &m, nil
}
