package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration from defaults, merged with the file at path
// when it exists. An empty path searches ./helix3d.yaml.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("helix3d.yaml"); err == nil {
			path = "helix3d.yaml"
		}
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
