package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand wires --version and a `version` subcommand into root.
// `version --short` prints the bare version for scripts.
func AttachCobraVersionCommand(root *cobra.Command) {
	root.Version = Short()
	root.SetVersionTemplate("{{.Name}} " + Full() + "\n")

	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			line := Full()
			if short {
				line = Short()
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print only the version number")

	root.AddCommand(cmd)
}
