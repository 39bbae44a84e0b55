package cli

import (
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/filesentry/cmd/filesentry/internal/integrity"
	"github.com/albertocavalcante/filesentry/cmd/filesentry/internal/metrics"
)

var updateCmd = &cobra.Command{
	Use:   "update [root]",
	Short: "Capture the current state as the new baseline",
	Long: `Hashes every regular file under root and replaces the baseline
without comparing. Use it to accept intended changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) (err error) {
	s, err := resolveSettings(cmd, args)
	if err != nil {
		return err
	}

	rec := metrics.NewRecorder()
	defer func() { s.finish(rec, "update", err) }()

	tracker, err := s.tracker()
	if err != nil {
		return err
	}

	var scan *integrity.ScanResult
	err = s.withLock(func() error {
		var refreshErr error
		scan, refreshErr = tracker.Refresh(commandContext(cmd))
		return refreshErr
	})
	if err != nil {
		return err
	}

	rec.ObserveScan(scan)
	s.newPrinter(cmd).Captured(scan, tracker.Store().Path())
	return nil
}
