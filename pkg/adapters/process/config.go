package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProcessConfig describes an external command exposed to the LLM as a tool.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
	// Parameters is the JSON schema of the tool arguments.
	Parameters map[string]any `yaml:"parameters" json:"parameters"`
}

// ConfigFile represents the structure of tools.yaml
type ConfigFile struct {
	Tools []ProcessConfig `yaml:"tools" json:"tools"`
}

// LoadTools reads a configuration file (YAML or JSON) and returns a map of tool names to configs.
// A missing file means no tools are configured.
func LoadTools(path string) (map[string]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ProcessConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	toolMap := make(map[string]ProcessConfig)
	for _, tool := range cfg.Tools {
		if tool.Name == "" {
			continue
		}
		if tool.Command == "" {
			return nil, fmt.Errorf("tool %q has no command", tool.Name)
		}
		toolMap[tool.Name] = tool
	}
	return toolMap, nil
}
