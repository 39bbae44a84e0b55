package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/filesentry/cmd/filesentry/internal/integrity"
)

var hashCmd = &cobra.Command{
	Use:   "hash <file>...",
	Short: "Print content digests of files",
	Long: `Prints the digest of each file with the configured algorithm, in the
same layout as md5sum. Digests match the ones stored in baselines.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)
}

func runHash(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd, nil)
	if err != nil {
		return err
	}

	var opts []integrity.HasherOption
	if s.cfg.Scan.ReadRate > 0 {
		opts = append(opts, integrity.WithReadRate(s.cfg.Scan.ReadRate))
	}
	hasher, err := integrity.NewHasher(s.cfg.Scan.Algorithm, opts...)
	if err != nil {
		return err
	}

	printer := s.newPrinter(cmd)
	failed := 0
	for _, path := range args {
		digest, _, err := hasher.HashFile(commandContext(cmd), path)
		if err != nil {
			if ctxErr := commandContext(cmd).Err(); ctxErr != nil {
				return ctxErr
			}
			printer.Error(err)
			failed++
			continue
		}
		printer.Digest(path, hasher.Algorithm(), digest)
	}

	if failed > 0 {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%d of %d files could not be hashed", failed, len(args))}
	}
	return nil
}
