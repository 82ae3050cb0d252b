package commands

import (
	"github.com/spf13/cobra"

	"github.com/stocktrader-ops/tradectl/cmd/tradectl/handlers"
	"github.com/stocktrader-ops/tradectl/internal/config"
)

// Plan returns the command that prints the execution plan without touching
// any control plane.
func Plan() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the execution plan without provisioning anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(configPath, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Path to configuration file")

	return cmd
}
