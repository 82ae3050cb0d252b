package commands

import (
	"github.com/spf13/cobra"

	"github.com/stocktrader-ops/tradectl/cmd/tradectl/handlers"
	"github.com/stocktrader-ops/tradectl/internal/config"
)

// Init returns the command that creates the configuration file, through
// the wizard when attached to a terminal.
func Init() *cobra.Command {
	var configPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file (interactive on a terminal)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), configPath, force, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Path of the file to write")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}
