package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// Version returns the command printing the CLI version.
func Version() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tradectl version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "tradectl", version)
		},
	}
}
