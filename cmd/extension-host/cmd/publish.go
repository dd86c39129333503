package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/extension-host/internal/service/publisher"
)

// publishFlags holds overrides for the settings file.
//
//nolint:gochecknoglobals // Cobra binds flags to package variables.
var publishFlags publisher.Options

// publishCmd packs an extension and updates the feed.
//
//nolint:gochecknoglobals // Cobra commands are package-level by convention.
var publishCmd = &cobra.Command{
	Use:   "publish <path_to_extension>",
	Short: "Pack an extension and serve it through the update feed",
	Long: "Pack the extension directory with the browser, store the archive in the host directory " +
		"and point update_manifest.xml at it. When the feed already serves the manifest version, " +
		"the served version is bumped so installed copies update.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		options := publishFlags
		options.ConfigPath = configPath
		options.ExtensionPath = args[0]

		report, err := publisher.Run(cmd.Context(), &options)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, "Extension name: "+report.Name)
		_, _ = fmt.Fprintln(out, "Extension ID: "+report.ExtensionID)
		_, _ = fmt.Fprintln(out, "Manifest version: "+report.ManifestVersion)
		_, _ = fmt.Fprintln(out, "Previously served version: "+report.PreviousVersion)
		_, _ = fmt.Fprintln(out, "Newly served version: "+report.Version)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := publishCmd.Flags()
	flags.StringVar(&publishFlags.HostURL, "extension-host-url", "", "base URL of the update host (default from settings)")
	flags.StringVar(&publishFlags.BrowserPath, "chrome-path", "", "browser executable used to pack (default from settings)")
	flags.StringVar(&publishFlags.HostDir, "host-dir", "", "directory served by the update host")
	flags.StringVar(&publishFlags.KeysDir, "keys-dir", "", "directory holding signing keys and ids.json")
}
