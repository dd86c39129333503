package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oshokin/extension-host/internal/config"
	"github.com/oshokin/extension-host/internal/logger"
	"github.com/oshokin/extension-host/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel is the minimum level of log messages.
	logLevel string

	// rootCmd represents the base command.
	rootCmd = &cobra.Command{
		Use:   "extension-host",
		Short: "Pack browser extensions and serve them through a local autoupdate feed",
		Long: "extension-host packs an unpacked extension with the browser, keeps its signing key " +
			"and extension id, and maintains update_manifest.xml so installed copies update from a local host.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
	}
)

// Execute runs the extension-host CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.ErrorKV(ctx, "Command failed", "error", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above.
	}
}

// underscoreToDash accepts --chrome_path style flags next to --chrome-path.
func underscoreToDash(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.SetGlobalNormalizationFunc(underscoreToDash)

	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(publishCmd, idCmd, serveCmd)
}
