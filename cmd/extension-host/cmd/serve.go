package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/extension-host/internal/service/host"
)

// serveFlags holds overrides for the settings file.
//
//nolint:gochecknoglobals // Cobra binds flags to package variables.
var serveFlags host.Options

// serveCmd runs the update host.
//
//nolint:gochecknoglobals // Cobra commands are package-level by convention.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the update feed and archives over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		options := serveFlags
		options.ConfigPath = configPath

		return host.Run(cmd.Context(), &options)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	serveCmd.Flags().StringVar(&serveFlags.ListenAddress, "listen", "", "listen address (default: port of the host URL)")
	serveCmd.Flags().StringVar(&serveFlags.HostDir, "host-dir", "", "directory to serve")
}
