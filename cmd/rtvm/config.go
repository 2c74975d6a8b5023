package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// FileRegistryPreset names one file to open before a program runs, and
// whether it should become the registry's current handle. Several
// presets can name the same path with different modes (e.g. a log file
// opened once for append-writing and never read).
type FileRegistryPreset struct {
	Path    string `yaml:"path"`
	Mode    string `yaml:"mode"` // "read", "write", or "append"
	Current bool   `yaml:"current"`
}

// Config is the optional --config file a run/debug invocation may load to
// pre-populate the executor's file registry with named streams instead of
// just stdin/stdout/stderr.
type Config struct {
	Files []FileRegistryPreset `yaml:"files"`
}

// loadConfig reads and parses a YAML config file. A missing path is not
// an error at the call site - callers check for "" before calling this.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rtvm: reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("rtvm: parsing config %s: %w", path, err)
	}
	return &cfg, nil
}
