package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/filesentry/cmd/filesentry/internal/integrity"
	"github.com/albertocavalcante/filesentry/cmd/filesentry/internal/lock"
	"github.com/albertocavalcante/filesentry/cmd/filesentry/internal/metrics"
	"github.com/albertocavalcante/filesentry/cmd/filesentry/internal/report"
	"github.com/albertocavalcante/filesentry/internal/log"
	"github.com/albertocavalcante/filesentry/pkg/config"
)

// settings is the resolved configuration of one command invocation.
type settings struct {
	cfg      *config.Config
	root     string // absolute scan root
	baseline string // absolute baseline path
}

// resolveSettings layers config discovery, the environment and CLI flags.
// The optional positional argument is the scan root.
func resolveSettings(cmd *cobra.Command, args []string) (*settings, error) {
	root := ""
	if len(args) > 0 {
		root = args[0]
	}

	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	initLogging(cfg)

	if root == "" {
		root = cfg.Scan.Root
	}
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	baseline, err := filepath.Abs(cfg.BaselinePath(absRoot))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve baseline path: %w", err)
	}

	log.Debug("resolved settings",
		"root", absRoot,
		"baseline", baseline,
		"algorithm", cfg.Scan.Algorithm,
		"workers", cfg.Scan.Workers,
		"exclude", cfg.Scan.Exclude)
	return &settings{cfg: cfg, root: absRoot, baseline: baseline}, nil
}

// loadConfig reads an explicit --config file, or discovers project config
// upwards from the scan root (or the working directory).
func loadConfig(root string) (*config.Config, error) {
	if globalFlags.configPath != "" {
		return config.LoadFile(globalFlags.configPath)
	}
	if root != "" {
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			return config.LoadFrom(root), nil
		}
	}
	return config.Load(), nil
}

// applyFlags overrides config values with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("verbosity") {
		v := globalFlags.verbosity
		cfg.Log.Verbosity = &v
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = globalFlags.logFormat
	}
	if flags.Changed("algorithm") {
		cfg.Scan.Algorithm = globalFlags.algorithm
	}
	if flags.Changed("baseline") {
		cfg.Baseline.Path = globalFlags.baseline
	}
	if flags.Changed("workers") {
		cfg.Scan.Workers = globalFlags.workers
	}
	if flags.Changed("exclude") {
		cfg.Scan.Exclude = append(cfg.Scan.Exclude, globalFlags.exclude...)
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile = globalFlags.metricsFile
	}
}

// initLogging applies the resolved config to the logger.
func initLogging(cfg *config.Config) {
	log.Init(cfg.LogVerbosity(), cfg.Log.Format)
}

// tracker wires an integrity tracker from the settings.
func (s *settings) tracker() (*integrity.Tracker, error) {
	return integrity.NewTracker(integrity.TrackerConfig{
		Root:      s.root,
		Algorithm: s.cfg.Scan.Algorithm,
		Baseline:  s.baseline,
		Format:    s.cfg.Baseline.Format,
		Exclude:   s.cfg.Scan.Exclude,
		Workers:   s.cfg.Scan.Workers,
		ReadRate:  s.cfg.Scan.ReadRate,
	})
}

// withLock runs fn while holding the baseline lock, if locking is enabled.
func (s *settings) withLock(fn func() error) error {
	if !s.cfg.LockEnabled() {
		return fn()
	}

	l, err := lock.Acquire(lock.PathFor(s.baseline))
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			log.Warn("failed to release baseline lock", "path", l.Path(), "error", err)
		}
	}()
	return fn()
}

// finish records the command outcome and writes the metrics textfile.
// A metrics write failure is logged; it never changes the exit status.
func (s *settings) finish(rec *metrics.Recorder, command string, err error) {
	if s.cfg.Metrics.Textfile == "" {
		return
	}
	rec.ObserveResult(command, s.root, err, time.Now())
	if werr := rec.WriteTextfile(s.cfg.Metrics.Textfile); werr != nil {
		log.Warn("failed to export metrics", "path", s.cfg.Metrics.Textfile, "error", werr)
	}
}

// newPrinter creates a report printer on the command's output. Path lists
// for first captures are shown from verbosity 2 (info) up.
func (s *settings) newPrinter(cmd *cobra.Command) *report.Printer {
	return report.NewPrinter(report.PrinterConfig{
		Writer:  cmd.OutOrStdout(),
		Verbose: s.cfg.LogVerbosity() >= 2,
		NoColor: globalFlags.noColor,
		JSON:    globalFlags.json,
	})
}

// commandContext returns the command's context, which Execute ties to
// SIGINT and SIGTERM.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
