package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/jbr-fetch/internal/config"
	"github.com/oshokin/jbr-fetch/internal/logger"
	"github.com/oshokin/jbr-fetch/internal/service/fetcher"
	"github.com/oshokin/jbr-fetch/internal/version"
)

var (
	// configPath to the optional settings YAML file.
	configPath string
	// logLevel overrides the zap level.
	logLevel string
	// outputName is the GITHUB_OUTPUT key.
	outputName string
	// timeout bounds each HTTP download.
	timeout time.Duration

	// rootCmd downloads, verifies and caches the runtime archive.
	rootCmd = &cobra.Command{
		Use:   "jbr-fetch",
		Short: "Download, verify and cache a JetBrains Runtime archive.",
		Long: `Resolves the archive named by JBR_URL inside RUNNER_TOOL_CACHE and verifies it
against the SHA-512 published at JBR_CHECKSUM_URL.

A cached archive that already matches is reused. Otherwise it is downloaded once;
if the fresh copy still does not match, the command exits with status 1.
The resolved path is appended to GITHUB_OUTPUT as jbrLocation=<path> when set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &fetcher.Options{
				ConfigPath: configPath,
				OutputName: outputName,
				LogLevel:   logLevel,
				Timeout:    timeout,
				Stdout:     cmd.OutOrStdout(),
			}

			_, err := fetcher.Run(ctx, options)

			return err
		},
	}
)

// Execute runs the jbr-fetch CLI and exits with status 1 on any error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(checksumCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.ErrorKV(context.Background(), "jbr-fetch failed", "error", err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn or error")

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to an optional settings file")
	rootCmd.Flags().StringVar(&outputName, "output-name", "", "key appended to GITHUB_OUTPUT (default \""+config.DefaultOutputName+"\")")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "timeout for each download, 0 waits as long as the transfer runs")
}
