package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/extension-host/internal/crx"
)

// idKeyPath is a signing key to derive the id from instead of an archive.
//
//nolint:gochecknoglobals // Cobra binds flags to package variables.
var idKeyPath string

// idCmd prints the extension id of an archive or a signing key.
//
//nolint:gochecknoglobals // Cobra commands are package-level by convention.
var idCmd = &cobra.Command{
	Use:   "id [file.crx]",
	Short: "Print the extension id of a packed extension or signing key",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			id  string
			err error
		)

		switch {
		case len(args) == 1 && idKeyPath == "":
			id, err = crx.ReadExtensionID(args[0])
		case len(args) == 0 && idKeyPath != "":
			id, err = crx.IDFromPEMFile(idKeyPath)
		default:
			return errIDSource
		}

		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	idCmd.Flags().StringVar(&idKeyPath, "key", "", "PEM private key to derive the id from")
}
