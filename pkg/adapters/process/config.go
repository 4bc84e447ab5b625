package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CommandConfig describes the external program run for every step.
type CommandConfig struct {
	Command     string            `yaml:"command" json:"command" mapstructure:"command"`
	Args        []string          `yaml:"args" json:"args" mapstructure:"args"`
	Environment map[string]string `yaml:"env" json:"env" mapstructure:"env"`
	Dir         string            `yaml:"dir" json:"dir" mapstructure:"dir"`
}

// LoadCommand reads a command definition file (YAML or JSON by extension).
func LoadCommand(path string) (CommandConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("failed to read actuator command: %w", err)
	}

	var cfg CommandConfig
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return CommandConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return CommandConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if cfg.Command == "" {
		return CommandConfig{}, fmt.Errorf("%s: command is required", path)
	}
	return cfg, nil
}
