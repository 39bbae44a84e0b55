package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/albertocavalcante/filesentry/internal/log"
)

// ConfigFileName is the name of the project-level config file.
const ConfigFileName = "filesentry.toml"

// ConfigDirName is the name of the project-level state and config directory.
const ConfigDirName = ".filesentry"

// GlobalConfigDir is the name of the global config directory inside user's config.
const GlobalConfigDir = "filesentry"

// Load loads configuration from all layers in order of precedence:
//  1. Built-in defaults
//  2. Global user config (~/.config/filesentry/config.toml)
//  3. Project config (.filesentry/config.toml or filesentry.toml)
//  4. Environment variables (FILESENTRY_*)
//
// CLI flags are applied separately after Load() returns.
func Load() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return LoadFrom(wd)
}

// LoadFrom loads configuration starting from a specific directory.
func LoadFrom(dir string) *Config {
	cfg := NewConfig()

	// Layer 2: Global user config
	if globalCfg := loadGlobalConfig(); globalCfg != nil {
		cfg.Merge(globalCfg)
	}

	// Layer 3: Project config from specified directory
	if projectCfg := loadProjectConfigFrom(dir); projectCfg != nil {
		cfg.Merge(projectCfg)
	}

	// Layer 4: Environment variables
	applyEnvironmentVariables(cfg)

	return cfg
}

// LoadFile loads defaults, then an explicit config file, then the environment.
// Unlike the discovered layers, an explicit file must exist and parse.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if _, err := toml.Decode(string(data), &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg := NewConfig()
	cfg.Merge(&fileCfg)
	applyEnvironmentVariables(cfg)
	return cfg, nil
}

// loadGlobalConfig loads the global user configuration from ~/.config/filesentry/config.toml.
func loadGlobalConfig() *Config {
	path := GetGlobalConfigPath()
	if path == "" {
		return nil
	}
	return loadConfigFile(path)
}

// loadProjectConfigFrom looks for project configuration starting from the given directory.
func loadProjectConfigFrom(dir string) *Config {
	// Search up the directory tree for config files
	current := dir
	for {
		for _, candidate := range GetProjectConfigPaths(current) {
			if cfg := loadConfigFile(candidate); cfg != nil {
				return cfg
			}
		}

		// Stop at filesystem root or repository root
		if isProjectRoot(current) {
			break
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return nil
}

// isProjectRoot checks if the directory is a repository root (has .git or .hg).
func isProjectRoot(dir string) bool {
	markers := []string{".git", ".hg"}
	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// loadConfigFile loads a configuration from a TOML file.
// Missing files are silent; malformed ones are reported and skipped.
func loadConfigFile(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		log.Warn("ignoring malformed config file", "path", path, "error", err)
		return nil
	}

	log.Debug("loaded config file", "path", path)
	return &cfg
}

// applyEnvironmentVariables applies FILESENTRY_* environment variables to the config.
func applyEnvironmentVariables(cfg *Config) {
	if v := os.Getenv("FILESENTRY_ROOT"); v != "" {
		cfg.Scan.Root = v
	}
	if v := os.Getenv("FILESENTRY_ALGORITHM"); v != "" {
		cfg.Scan.Algorithm = strings.ToLower(v)
	}
	applyIntEnv("FILESENTRY_WORKERS", &cfg.Scan.Workers)

	// FILESENTRY_EXCLUDE: comma-separated list of patterns
	if v := os.Getenv("FILESENTRY_EXCLUDE"); v != "" {
		cfg.Scan.Exclude = append(cfg.Scan.Exclude, splitAndTrim(v)...)
	}
	if v := os.Getenv("FILESENTRY_READ_RATE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Scan.ReadRate = n
		}
	}

	if v := os.Getenv("FILESENTRY_BASELINE"); v != "" {
		cfg.Baseline.Path = v
	}
	if v := os.Getenv("FILESENTRY_BASELINE_FORMAT"); v != "" {
		cfg.Baseline.Format = strings.ToLower(v)
	}
	applyBoolEnv("FILESENTRY_LOCK", &cfg.Baseline.Lock)

	if v := os.Getenv("FILESENTRY_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("FILESENTRY_VERBOSITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Log.Verbosity = &n
		}
	}

	if v := os.Getenv("FILESENTRY_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// applyIntEnv applies an integer environment variable, ignoring garbage.
func applyIntEnv(envVar string, target *int) {
	if v := os.Getenv(envVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

// applyBoolEnv applies a boolean environment variable to a pointer.
func applyBoolEnv(envVar string, target **bool) {
	if v := os.Getenv(envVar); v != "" {
		v = strings.ToLower(v)
		if v == "true" || v == "1" || v == "yes" {
			t := true
			*target = &t
		} else if v == "false" || v == "0" || v == "no" {
			f := false
			*target = &f
		}
	}
}

// GetGlobalConfigPath returns the path to the global config file.
func GetGlobalConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, GlobalConfigDir, "config.toml")
}

// GetProjectConfigPaths returns potential project config paths for a given directory.
func GetProjectConfigPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ConfigDirName, "config.toml"),
		filepath.Join(dir, ConfigFileName),
	}
}
