package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sgloader/sgloader-packager/internal/config"
	"github.com/sgloader/sgloader-packager/internal/logger"
	"github.com/sgloader/sgloader-packager/internal/service/packager"
	"github.com/sgloader/sgloader-packager/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// logLevel overrides the default logging level.
	logLevel string

	// rootCmd represents the base command that assembles the release archive.
	rootCmd = &cobra.Command{
		Use:   "sgloader-packager",
		Short: "Assemble the SGLoader distributable archive",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			options := &packager.Options{
				ConfigPath: configPath,
			}

			return packager.Run(ctx, options)
		},
	}
)

// Execute runs the sgloader-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "logging level (debug, info, warn, error)")
}
