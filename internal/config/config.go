// Package config loads the optional YAML configuration the CLI layers
// between built-in defaults and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config mirrors the config file. Every field has a flag equivalent; flags
// win when both are given.
type Config struct {
	Defaults DefaultsConfig `yaml:"defaults"`
	Output   OutputConfig   `yaml:"output"`
}

// DefaultsConfig holds the knobs that shape how patches apply.
type DefaultsConfig struct {
	Strip            int    `yaml:"strip"`
	Fuzz             int    `yaml:"fuzz"`
	Backup           bool   `yaml:"backup"`
	BackupSuffix     string `yaml:"backup_suffix"`
	RemoveEmptyFiles bool   `yaml:"remove_empty_files"`
	RejectFormat     string `yaml:"reject_format"`
}

// OutputConfig holds the verbosity settings.
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
	Quiet   bool `yaml:"quiet"`
	Debug   bool `yaml:"debug"`
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// DefaultConfig returns a Config with default values: probe the strip
// count, allow two lines of fuzz, rejects follow the input format.
func DefaultConfig() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Strip:        -1,
			Fuzz:         2,
			BackupSuffix: ".orig",
		},
	}
}

// DefaultPath returns the conventional config location,
// $XDG_CONFIG_HOME/gopatch/config.yaml, or empty when no home is known.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "gopatch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gopatch", "config.yaml")
}

// Load reads and parses the config file at the given path. The raw bytes go
// through ${VAR} substitution, then schema validation, then decode over the
// defaults so absent keys keep their built-in values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})

	if err := validateAgainstSchema(data); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Resolve picks the config for a run: an explicit path must load, the
// default location loads when present, and otherwise the built-in defaults
// stand.
func Resolve(explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path := DefaultPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return Load(path)
}
