// Package config provides configuration management for filesentry.
// It supports multi-layer configuration with precedence:
//  1. Built-in defaults (lowest priority)
//  2. Global user config (~/.config/filesentry/config.toml)
//  3. Project config (.filesentry/config.toml or filesentry.toml)
//  4. Environment variables (FILESENTRY_*)
//  5. CLI flags (highest priority)
package config

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
)

// DefaultAlgorithm is the digest algorithm used when none is configured.
const DefaultAlgorithm = "md5"

// DefaultBaselineFile is the baseline file name inside the state directory.
const DefaultBaselineFile = "baseline.json"

// Config is the main configuration struct for filesentry.
type Config struct {
	// Scan configures directory traversal and hashing.
	Scan ScanConfig `toml:"scan"`

	// Baseline configures where and how the baseline is persisted.
	Baseline BaselineConfig `toml:"baseline"`

	// Log configures diagnostic logging.
	Log LogConfig `toml:"log"`

	// Metrics configures run metrics export.
	Metrics MetricsConfig `toml:"metrics"`
}

// ScanConfig holds traversal and hashing settings.
type ScanConfig struct {
	// Root is the directory to scan. Empty means the current directory.
	Root string `toml:"root,omitempty"`

	// Algorithm is the digest algorithm ("md5", "sha256", "xxh64", "blake2b").
	Algorithm string `toml:"algorithm,omitempty"`

	// Workers bounds concurrent hashing. 0 means one per CPU.
	Workers int `toml:"workers,omitempty"`

	// Exclude holds doublestar patterns matched against root-relative paths.
	Exclude []string `toml:"exclude,omitempty"`

	// ReadRate caps hashing throughput in bytes per second. 0 is unlimited.
	ReadRate int64 `toml:"read_rate,omitempty"`
}

// BaselineConfig holds baseline persistence settings.
type BaselineConfig struct {
	// Path is the baseline file. Empty means <root>/.filesentry/baseline.json.
	Path string `toml:"path,omitempty"`

	// Format is the baseline encoding ("json" or "yaml"). Empty infers it
	// from the file extension.
	Format string `toml:"format,omitempty"`

	// Lock serializes runs against the baseline with a lock file.
	Lock *bool `toml:"lock,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Verbosity is the klog-style level (0=error ... 4=trace).
	Verbosity *int `toml:"verbosity,omitempty"`

	// Format is "text" or "json".
	Format string `toml:"format,omitempty"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	// Textfile is a node_exporter textfile collector path. Empty disables export.
	Textfile string `toml:"textfile,omitempty"`
}

// NewConfig creates a new Config with built-in defaults.
func NewConfig() *Config {
	trueVal := true
	verbosity := 1
	return &Config{
		Scan: ScanConfig{
			Algorithm: DefaultAlgorithm,
			Exclude:   []string{},
		},
		Baseline: BaselineConfig{
			Lock: &trueVal,
		},
		Log: LogConfig{
			Verbosity: &verbosity,
			Format:    "text",
		},
	}
}

// Merge merges another config into this one (other takes precedence).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Merge scan config
	if other.Scan.Root != "" {
		c.Scan.Root = other.Scan.Root
	}
	if other.Scan.Algorithm != "" {
		c.Scan.Algorithm = other.Scan.Algorithm
	}
	if other.Scan.Workers != 0 {
		c.Scan.Workers = other.Scan.Workers
	}
	if len(other.Scan.Exclude) > 0 {
		c.Scan.Exclude = append(c.Scan.Exclude, other.Scan.Exclude...)
	}
	if other.Scan.ReadRate != 0 {
		c.Scan.ReadRate = other.Scan.ReadRate
	}

	// Merge baseline config
	if other.Baseline.Path != "" {
		c.Baseline.Path = other.Baseline.Path
	}
	if other.Baseline.Format != "" {
		c.Baseline.Format = other.Baseline.Format
	}
	if other.Baseline.Lock != nil {
		c.Baseline.Lock = other.Baseline.Lock
	}

	// Merge log config
	if other.Log.Verbosity != nil {
		c.Log.Verbosity = other.Log.Verbosity
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}

	// Merge metrics config
	if other.Metrics.Textfile != "" {
		c.Metrics.Textfile = other.Metrics.Textfile
	}
}

// Validate checks values that can be verified without touching the filesystem.
// Algorithm names are checked by the hasher, which owns the registry.
func (c *Config) Validate() error {
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must be >= 0, got %d", c.Scan.Workers)
	}
	if c.Scan.ReadRate < 0 {
		return fmt.Errorf("scan.read_rate must be >= 0, got %d", c.Scan.ReadRate)
	}
	if !slices.Contains([]string{"", "json", "yaml"}, c.Baseline.Format) {
		return fmt.Errorf("baseline.format must be json or yaml, got %q", c.Baseline.Format)
	}
	if !slices.Contains([]string{"", "text", "json"}, c.Log.Format) {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// LockEnabled reports whether runs should take the baseline lock.
func (c *Config) LockEnabled() bool {
	return c.Baseline.Lock == nil || *c.Baseline.Lock
}

// LogVerbosity returns the configured verbosity, defaulting to warnings.
func (c *Config) LogVerbosity() int {
	if c.Log.Verbosity == nil {
		return 1
	}
	return *c.Log.Verbosity
}

// BaselinePath resolves the baseline file for the given scan root.
func (c *Config) BaselinePath(root string) string {
	if c.Baseline.Path != "" {
		return c.Baseline.Path
	}
	return filepath.Join(root, ConfigDirName, DefaultBaselineFile)
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
