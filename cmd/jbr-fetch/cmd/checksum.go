package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/jbr-fetch/internal/logger"
	"github.com/oshokin/jbr-fetch/internal/service/checksum"
)

// outputDir receives manifests written by the checksum subcommand.
var outputDir string

// checksumCmd writes manifests in the format the root command consumes.
var checksumCmd = &cobra.Command{
	Use:   "checksum <archive>...",
	Short: "Write <archive>.checksum manifests with SHA-512 digests.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if logLevel != "" {
			level, err := logger.ParseLogLevel(logLevel)
			if err != nil {
				return err
			}

			logger.SetLevel(level)
		}

		_, err := checksum.Run(cmd.Context(), &checksum.Options{
			Files:     args,
			OutputDir: outputDir,
		})

		return err
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	checksumCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for manifests, defaults to each archive's directory")
}
