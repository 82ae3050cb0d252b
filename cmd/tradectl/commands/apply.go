package commands

import (
	"github.com/spf13/cobra"

	"github.com/stocktrader-ops/tradectl/cmd/tradectl/handlers"
	"github.com/stocktrader-ops/tradectl/internal/config"
)

// Apply returns the command that provisions the whole environment: cloud
// resources, cluster add-ons, secret bridge, and the application itself.
// Re-running apply against an existing environment converges it.
func Apply() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Provision the environment and deploy the application",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Path to configuration file")

	return cmd
}
