// Package env provides the environment registry: a table of named target
// environments (dev, qa, staging, prod) resolved once at startup from
// built-in defaults, an optional config file, and process environment
// variables.
//
// The registry is an explicit value passed to the components that need it.
// Nothing in this package keeps process-wide mutable state, so tests can
// build registries for several environments side by side.
package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Known environment names.
const (
	Dev     = "dev"
	QA      = "qa"
	Staging = "staging"
	Prod    = "prod"
)

// Config describes a single target environment.
type Config struct {
	Name        string `json:"name" yaml:"name"`
	BaseURL     string `json:"baseUrl" yaml:"baseUrl"`
	APIKey      string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	MaxVUs      int    `json:"maxVUs" yaml:"maxVUs"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Registry holds the environment table and the name selected for this run.
// Construct it once with NewRegistry (or FromProcessEnv) and treat it as
// immutable afterwards.
type Registry struct {
	selected     string
	environments map[string]Config
}

// defaultTable returns the built-in environment table.
func defaultTable() map[string]Config {
	return map[string]Config{
		Dev: {
			Name:        Dev,
			BaseURL:     "https://dev-api.example.com",
			MaxVUs:      10,
			Description: "Development environment",
		},
		QA: {
			Name:        QA,
			BaseURL:     "https://qa-api.example.com",
			MaxVUs:      50,
			Description: "QA environment",
		},
		Staging: {
			Name:        Staging,
			BaseURL:     "https://staging-api.example.com",
			MaxVUs:      100,
			Description: "Staging environment",
		},
		Prod: {
			Name:        Prod,
			BaseURL:     "https://api.example.com",
			MaxVUs:      200,
			Description: "Production environment",
		},
	}
}

// NewRegistry builds a registry from the built-in table merged with the
// given overrides (override fields win when non-zero). An empty or unknown
// selected name falls back to prod.
func NewRegistry(selected string, overrides map[string]Config) *Registry {
	table := defaultTable()

	for name, override := range overrides {
		base, ok := table[name]
		if !ok {
			base = Config{Name: name}
		}
		table[name] = mergeConfig(base, override)
	}

	return &Registry{
		selected:     normalizeName(selected, table),
		environments: table,
	}
}

// FromProcessEnv builds a registry from the built-in table merged with
// process environment variables:
//
//	ENV                         selects the environment (default: prod)
//	BASE_URL                    overrides the selected environment's base URL
//	DEV_BASE_URL etc.           override per-environment base URLs
//	API_KEY, DEV_API_KEY etc.   same scheme for API keys
//	VUS                         overrides the selected environment's MaxVUs
func FromProcessEnv(getenv func(string) string) *Registry {
	return Load(getenv, nil)
}

// Load builds a registry by layering, lowest precedence first: the
// built-in table, fileOverrides (from a config file), and process
// environment variables.
func Load(getenv func(string) string, fileOverrides map[string]Config) *Registry {
	if getenv == nil {
		getenv = os.Getenv
	}

	table := defaultTable()

	for name, override := range fileOverrides {
		base, ok := table[name]
		if !ok {
			base = Config{Name: name}
		}
		table[name] = mergeConfig(base, override)
	}

	for name, cfg := range table {
		prefix := strings.ToUpper(name) + "_"
		if v := getenv(prefix + "BASE_URL"); v != "" {
			cfg.BaseURL = v
		}
		if v := getenv(prefix + "API_KEY"); v != "" {
			cfg.APIKey = v
		}
		table[name] = cfg
	}

	selected := normalizeName(getenv("ENV"), table)

	// Unprefixed variables apply to the selected environment only.
	cfg := table[selected]
	if v := getenv("BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := getenv("API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := getenv("VUS"); v != "" {
		if vus, err := strconv.Atoi(v); err == nil && vus > 0 {
			cfg.MaxVUs = vus
		}
	}
	table[selected] = cfg

	return &Registry{selected: selected, environments: table}
}

// normalizeName maps unknown or empty names to prod. The permissive
// fallback mirrors how the threshold tiers behave: a typo runs against
// prod defaults instead of failing, so callers wanting strict validation
// must check Known first.
func normalizeName(name string, table map[string]Config) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := table[name]; ok {
		return name
	}
	return Prod
}

// mergeConfig overlays non-zero override fields onto base.
func mergeConfig(base, override Config) Config {
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.MaxVUs > 0 {
		base.MaxVUs = override.MaxVUs
	}
	if override.Description != "" {
		base.Description = override.Description
	}
	return base
}

// Current returns the configuration of the selected environment.
func (r *Registry) Current() Config {
	return r.environments[r.selected]
}

// Selected returns the resolved environment name.
func (r *Registry) Selected() string {
	return r.selected
}

// Get returns the named environment's configuration.
func (r *Registry) Get(name string) (Config, bool) {
	cfg, ok := r.environments[strings.ToLower(name)]
	return cfg, ok
}

// Known reports whether name is present in the table.
func (r *Registry) Known(name string) bool {
	_, ok := r.environments[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Names returns all environment names in the table.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.environments))
	for name := range r.environments {
		names = append(names, name)
	}
	return names
}

// Validate checks the startup preconditions for the selected environment.
// A run must not start when the base URL is empty; this is a fail-fast
// check executed once before any load is generated.
func (r *Registry) Validate() error {
	cfg := r.Current()
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return fmt.Errorf("environment %q has an empty base URL", r.selected)
	}
	if cfg.MaxVUs <= 0 {
		return fmt.Errorf("environment %q has a non-positive VU limit: %d", r.selected, cfg.MaxVUs)
	}
	return nil
}
