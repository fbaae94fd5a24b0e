// Package config loads and validates the host's static configuration:
// the module directory, the filter token extensions, and the clearance
// layers with their features. Configuration is read once at startup and
// never mutated afterward.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Config is the root configuration document.
type Config struct {
	Host   HostConfig    `yaml:"host"`
	Filter FilterConfig  `yaml:"filter"`
	Layers []LayerConfig `yaml:"layers"`
}

// HostConfig covers process-wide settings.
type HostConfig struct {
	// ModuleDir is scanned for loadable module files at startup.
	ModuleDir string `yaml:"module_dir"`
	// AuditLog is the path of the append-only decision journal.
	AuditLog string `yaml:"audit_log"`
	// ABI is the accepted range for module-declared ABI versions.
	// Empty means the host default.
	ABI string `yaml:"abi"`
	// WatchModules loads module files as they appear in ModuleDir.
	WatchModules bool `yaml:"watch_modules"`
}

// FilterConfig extends the built-in scanner token tables.
type FilterConfig struct {
	BlockTokens []string `yaml:"block_tokens"`
	AuditTokens []string `yaml:"audit_tokens"`
}

// LayerConfig declares one clearance layer.
type LayerConfig struct {
	ID        string          `yaml:"id"`
	Clearance string          `yaml:"clearance"`
	Features  []FeatureConfig `yaml:"features"`
}

// Feature kinds: what an authorized invocation is routed to.
const (
	// KindModule routes to a loaded module entry point.
	KindModule = "module"
	// KindSandbox routes to a container operation.
	KindSandbox = "sandbox"
	// KindBuiltin routes to a host-implemented action.
	KindBuiltin = "builtin"
)

// FeatureConfig declares one feature inside a layer.
type FeatureConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	// Guard is an optional boolean expression checked after clearance.
	Guard string `yaml:"guard"`

	// KindModule fields.
	Module        string `yaml:"module"`
	Symbol        string `yaml:"symbol"`
	Shape         string `yaml:"shape"`
	ZeroIsFailure bool   `yaml:"zero_is_failure"`

	// KindSandbox field.
	Operation string `yaml:"operation"`
}

// Load reads, schema-checks, and structurally validates a configuration
// file. A config that fails any check refuses the whole load; there is
// no partial configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes an in-memory configuration document.
func Parse(data []byte) (*Config, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
