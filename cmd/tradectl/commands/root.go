// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing and flag binding. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the tradectl CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tradectl",
		Short:         "Provision the stock trader application on Azure",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Init())
	cmd.AddCommand(Plan())
	cmd.AddCommand(Apply())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Precheck())
	cmd.AddCommand(Postcheck())
	cmd.AddCommand(Version())

	return cmd
}
