package env

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk override format: per-environment settings
// plus optional threshold conditions layered on top of the resolved tier.
//
// Example YAML:
//
//	environments:
//	  staging:
//	    baseUrl: "https://staging.internal.example.com"
//	    maxVUs: 150
//	  prod:
//	    apiKey: "prod-key-from-vault"
//	thresholds:
//	  http_req_duration{endpoint:checkout}:
//	    - "p(95)<900"
type FileConfig struct {
	Environments map[string]Config   `json:"environments" yaml:"environments"`
	Thresholds   map[string][]string `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// LoadFileConfig reads and validates the full override file.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment config: %w", err)
	}

	if err := validateFileData(data); err != nil {
		return nil, err
	}

	var file FileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}

	// Carry the map key into the Name field so overrides built from the
	// file are self-describing.
	for name, cfg := range file.Environments {
		if cfg.Name == "" {
			cfg.Name = name
			file.Environments[name] = cfg
		}
	}

	return &file, nil
}

// LoadFile reads environment overrides from a YAML file.
func LoadFile(path string) (map[string]Config, error) {
	file, err := LoadFileConfig(path)
	if err != nil {
		return nil, err
	}
	return file.Environments, nil
}

// LoadWithFile builds a registry from the built-in table, a YAML override
// file (optional, pass "" to skip), and process environment variables.
func LoadWithFile(path string, getenv func(string) string) (*Registry, error) {
	var overrides map[string]Config
	if path != "" {
		var err error
		overrides, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	}
	return Load(getenv, overrides), nil
}
