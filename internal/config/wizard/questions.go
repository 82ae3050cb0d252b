package wizard

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/stocktrader-ops/tradectl/internal/config"
)

// environmentPattern mirrors the loader's validation so the wizard rejects
// a name the config would refuse anyway.
var environmentPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{2,19}$`)

// nodeSizeOptions are the VM sizes offered for cluster nodes.
var nodeSizeOptions = []huh.Option[string]{
	huh.NewOption("Standard_D2s_v3 (2 vCPU, 8 GiB)", "Standard_D2s_v3"),
	huh.NewOption("Standard_D4s_v3 (4 vCPU, 16 GiB)", "Standard_D4s_v3"),
	huh.NewOption("Standard_D8s_v3 (8 vCPU, 32 GiB)", "Standard_D8s_v3"),
}

var nodeCountOptions = []huh.Option[int]{
	huh.NewOption("1 (development)", 1),
	huh.NewOption("3 (recommended)", 3),
	huh.NewOption("5", 5),
}

func runIdentityGroup(ctx context.Context, result *Result) error {
	result.Region = "eastus"

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Environment Name").
				Description("Seeds every resource name. 3-20 lowercase alphanumeric characters or dashes, starting with a letter.").
				Placeholder("dev").
				Value(&result.Environment).
				Validate(validateEnvironment),
			huh.NewSelect[string]().
				Title("Region").
				Description("Azure region for all resources").
				Options(regionOptions()...).
				Value(&result.Region),
		).Title("Deployment Identity"),
	).RunWithContext(ctx)
}

func runSubscriptionGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Subscription ID").
				Description("Azure subscription UUID").
				Placeholder("00000000-0000-0000-0000-000000000000").
				Value(&result.SubscriptionID).
				Validate(validateUUID),
			huh.NewInput().
				Title("Tenant ID").
				Description("Azure Active Directory tenant UUID").
				Placeholder("00000000-0000-0000-0000-000000000000").
				Value(&result.TenantID).
				Validate(validateUUID),
		).Title("Azure Subscription"),
	).RunWithContext(ctx)
}

func runClusterGroup(ctx context.Context, result *Result) error {
	result.NodeCount = 3
	result.NodeSize = "Standard_D2s_v3"

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Node Count").
				Description("Cluster worker nodes").
				Options(nodeCountOptions...).
				Value(&result.NodeCount),
			huh.NewSelect[string]().
				Title("Node Size").
				Description("VM size for cluster nodes").
				Options(nodeSizeOptions...).
				Value(&result.NodeSize),
		).Title("Cluster Sizing"),
	).RunWithContext(ctx)
}

func runDatabaseGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Database Admin Password").
				Description("At least 12 characters").
				EchoMode(huh.EchoModePassword).
				Value(&result.AdminPassword).
				Validate(validatePassword),
		).Title("Database"),
	).RunWithContext(ctx)
}

func runFeaturesGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Install Service Mesh?").
				Description("Istio for mutual TLS and traffic policy between services").
				Value(&result.MeshEnabled),
		).Title("Features"),
	).RunWithContext(ctx)
}

// regionOptions lists the supported regions in stable order.
func regionOptions() []huh.Option[string] {
	regions := make([]string, 0, len(config.ValidRegions))
	for r := range config.ValidRegions {
		regions = append(regions, r)
	}
	sort.Strings(regions)

	options := make([]huh.Option[string], len(regions))
	for i, r := range regions {
		options[i] = huh.NewOption(r, r)
	}
	return options
}

func validateEnvironment(s string) error {
	if s == "" {
		return fmt.Errorf("environment name is required")
	}
	if !environmentPattern.MatchString(s) {
		return fmt.Errorf("must be 3-20 lowercase alphanumeric characters or dashes, starting with a letter")
	}
	return nil
}

func validateUUID(s string) error {
	if s == "" {
		return fmt.Errorf("value is required")
	}
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("must be a UUID")
	}
	return nil
}

func validatePassword(s string) error {
	if len(s) < 12 {
		return fmt.Errorf("must be at least 12 characters")
	}
	return nil
}
