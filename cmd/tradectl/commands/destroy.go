package commands

import (
	"github.com/spf13/cobra"

	"github.com/stocktrader-ops/tradectl/cmd/tradectl/handlers"
	"github.com/stocktrader-ops/tradectl/internal/config"
)

// Destroy returns the command that tears the environment down in reverse
// dependency order. Safe to re-run against a partially destroyed
// environment.
func Destroy() *cobra.Command {
	var configPath string
	var yes bool

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Tear down every resource of the environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Path to configuration file")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")

	return cmd
}
