package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/filesentry/pkg/config"
)

var initFlags struct {
	force  bool
	dryRun bool
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter filesentry.toml",
	Long: `Writes a filesentry.toml with the built-in defaults into path (default:
the current directory). The file is picked up by every filesentry command
run in that directory or below it.

Use --dry-run to print the file instead of writing it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.force, "force", false,
		"Overwrite an existing config file")
	initCmd.Flags().BoolVar(&initFlags.dryRun, "dry-run", false,
		"Print the config instead of writing it")

	rootCmd.AddCommand(initCmd)
}

// starterExcludes are typical paths whose churn is not interesting.
var starterExcludes = []string{"**/*.tmp", "**/*.swp", ".git"}

func runInit(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	cfg := config.NewConfig()
	cfg.Scan.Exclude = starterExcludes

	var buf bytes.Buffer
	buf.WriteString("# filesentry configuration\n")
	buf.WriteString("# Values here are overridden by FILESENTRY_* variables and flags.\n\n")
	if err := cfg.Encode(&buf); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if initFlags.dryRun {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}

	target := filepath.Join(absPath, config.ConfigFileName)
	if _, err := os.Stat(target); err == nil && !initFlags.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", target)
	}

	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", absPath, err)
	}
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", target)
	return nil
}
