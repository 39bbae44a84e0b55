package cli

import (
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/filesentry/cmd/filesentry/internal/metrics"
)

var statusFlags struct {
	failOnChange bool
}

var statusCmd = &cobra.Command{
	Use:   "status [root]",
	Short: "Show changes since the baseline without updating it",
	Long: `Compares the current state of files under root against the baseline
and reports new, changed and deleted files. The baseline is never modified.

The --json flag outputs the result as a JSON line for scripting.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlags.failOnChange, "fail-on-change", false,
		"Exit with status 2 when changes are detected")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) (err error) {
	s, err := resolveSettings(cmd, args)
	if err != nil {
		return err
	}

	rec := metrics.NewRecorder()
	defer func() { s.finish(rec, "status", err) }()

	tracker, err := s.tracker()
	if err != nil {
		return err
	}

	// Saves are atomic renames, so reading without the lock is safe
	run, err := tracker.Status(commandContext(cmd))
	if err != nil {
		return err
	}

	rec.ObserveRun(run)
	s.newPrinter(cmd).Run(run)

	return changesExit(run.Changes, statusFlags.failOnChange)
}
