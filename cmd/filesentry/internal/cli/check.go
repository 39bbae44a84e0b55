package cli

import (
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/filesentry/cmd/filesentry/internal/integrity"
	"github.com/albertocavalcante/filesentry/cmd/filesentry/internal/metrics"
)

var checkFlags struct {
	failOnChange bool
	dryRun       bool
}

var checkCmd = &cobra.Command{
	Use:   "check [root]",
	Short: "Compare files against the baseline and update it",
	Long: `Hashes every regular file under root, reports files that are new,
changed or deleted since the baseline, then saves the new baseline.

Without a usable baseline (missing, empty, unreadable, or captured with a
different algorithm) the run is a first capture and nothing is compared.

Use --dry-run to compare without saving (same as 'filesentry status').
Use --fail-on-change to exit with status 2 when changes are found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkFlags.failOnChange, "fail-on-change", false,
		"Exit with status 2 when changes are detected")
	checkCmd.Flags().BoolVar(&checkFlags.dryRun, "dry-run", false,
		"Compare without saving the new baseline")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) (err error) {
	s, err := resolveSettings(cmd, args)
	if err != nil {
		return err
	}

	rec := metrics.NewRecorder()
	defer func() { s.finish(rec, "check", err) }()

	tracker, err := s.tracker()
	if err != nil {
		return err
	}

	var run *integrity.Run
	err = s.withLock(func() error {
		var runErr error
		if checkFlags.dryRun {
			run, runErr = tracker.Status(commandContext(cmd))
		} else {
			run, runErr = tracker.Check(commandContext(cmd))
		}
		return runErr
	})
	if err != nil {
		return err
	}

	rec.ObserveRun(run)
	s.newPrinter(cmd).Run(run)

	return changesExit(run.Changes, checkFlags.failOnChange)
}

// changesExit returns an ExitError with ExitChanges when failOnChange is set
// and a real comparison found differences. First captures never fail.
func changesExit(cs *integrity.ChangeSet, failOnChange bool) error {
	if failOnChange && !cs.Initial && !cs.IsEmpty() {
		return &ExitError{Code: ExitChanges}
	}
	return nil
}
