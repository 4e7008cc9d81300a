// Package kvconfig loads store configuration from a YAML file, falling
// back to sensible defaults for anything unset.
package kvconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk, YAML-encoded configuration for a store.
type Config struct {
	// Path is the data directory the store operates on.
	Path string `yaml:"path"`
	// CreateIfMissing creates Path if it does not already exist.
	CreateIfMissing bool `yaml:"create_if_missing"`
	// MemtableFlushThreshold is the MemTable byte size past which the
	// store should flush. Zero means "use the built-in default".
	MemtableFlushThreshold int `yaml:"memtable_flush_threshold"`
	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string `yaml:"log_level"`
	// Sync fsyncs the WAL after every write when true. Disabling it
	// trades durability for throughput.
	Sync bool `yaml:"sync"`
}

// Default returns a Config with the library's built-in defaults.
func Default() Config {
	return Config{
		CreateIfMissing: true,
		LogLevel:        "INFO",
		Sync:            true,
	}
}

// LoadFile reads and parses a YAML config file at path, starting from
// Default() so any field the file omits keeps its default value.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("kvconfig: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("kvconfig: parse %s: %w", path, err)
	}
	if cfg.Path == "" {
		return Config{}, fmt.Errorf("kvconfig: %s: path is required", path)
	}
	return cfg, nil
}
