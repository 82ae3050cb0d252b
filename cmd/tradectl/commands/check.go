package commands

import (
	"github.com/spf13/cobra"

	"github.com/stocktrader-ops/tradectl/cmd/tradectl/handlers"
	"github.com/stocktrader-ops/tradectl/internal/config"
)

// Precheck returns the command that validates everything a run needs
// before touching the control plane: configuration, credentials, and
// local tooling.
func Precheck() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "precheck",
		Short: "Validate configuration, credentials, and local tooling",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Precheck(cmd.Context(), configPath, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Path to configuration file")

	return cmd
}

// Postcheck returns the command that verifies a deployed environment end
// to end: database, vault, synced secrets, application, and function.
func Postcheck() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "postcheck",
		Short: "Verify every component of a deployed environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Postcheck(cmd.Context(), configPath, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Path to configuration file")

	return cmd
}
