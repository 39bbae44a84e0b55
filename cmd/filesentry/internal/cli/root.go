// Package cli implements the filesentry command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/filesentry/internal/log"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitChanges = 2
)

// ExitError carries a process exit code. A nil Err means the command has
// already reported the outcome and nothing more is printed.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity   int
	logFormat   string
	configPath  string
	algorithm   string
	baseline    string
	workers     int
	exclude     []string
	metricsFile string
	json        bool
	noColor     bool
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "filesentry",
	Short: "Detect file changes against a content baseline",
	Long: `Filesentry records a content digest for every regular file under a
directory and reports which files are new, changed or deleted since the
previous run.

The first run captures a baseline; later runs compare against it. Symlinks
are never followed. Files that cannot be read are reported and skipped.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	// Default behavior: show help
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "filesentry %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Global flags (persistent across all commands)
	pf := rootCmd.PersistentFlags()
	pf.IntVarP(&globalFlags.verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	pf.StringVar(&globalFlags.logFormat, "log-format", "text",
		"Log format (text, json)")
	pf.StringVar(&globalFlags.configPath, "config", "",
		"Config file (skips config discovery)")
	pf.StringVar(&globalFlags.algorithm, "algorithm", "",
		"Digest algorithm (md5, sha256, xxh64, blake2b)")
	pf.StringVar(&globalFlags.baseline, "baseline", "",
		"Baseline file (default <root>/.filesentry/baseline.json)")
	pf.IntVar(&globalFlags.workers, "workers", 0,
		"Concurrent hashing workers (0 = one per CPU)")
	pf.StringSliceVar(&globalFlags.exclude, "exclude", nil,
		"Glob patterns to exclude, relative to the root (repeatable)")
	pf.StringVar(&globalFlags.metricsFile, "metrics-file", "",
		"Write Prometheus metrics to this node_exporter textfile")
	pf.BoolVar(&globalFlags.json, "json", false,
		"Output as JSON lines")
	pf.BoolVar(&globalFlags.noColor, "no-color", false,
		"Disable colored output")

	// Bootstrap logging from flags so config loading can log; commands that
	// resolve a config re-apply it with initLogging.
	cobra.OnInitialize(func() {
		log.Init(globalFlags.verbosity, globalFlags.logFormat)
	})
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	defer func() { _ = log.Sync() }()
	return exitCode(err)
}

// exitCode maps a command error to an exit code, reporting it on stderr.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			_, _ = fmt.Fprintf(rootCmd.ErrOrStderr(), "filesentry: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}

	_, _ = fmt.Fprintf(rootCmd.ErrOrStderr(), "filesentry: %v\n", err)
	return ExitFailure
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
