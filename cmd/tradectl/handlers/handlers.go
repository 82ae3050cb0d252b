// Package handlers implements the CLI command logic. The external client
// constructors are package variables so tests can substitute fakes without
// network access.
package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/stocktrader-ops/tradectl/internal/addons"
	"github.com/stocktrader-ops/tradectl/internal/config"
	"github.com/stocktrader-ops/tradectl/internal/database"
	"github.com/stocktrader-ops/tradectl/internal/k8s"
	"github.com/stocktrader-ops/tradectl/internal/orchestration"
	"github.com/stocktrader-ops/tradectl/internal/platform/azure"
	"github.com/stocktrader-ops/tradectl/internal/provisioning"
)

var (
	loadConfig = func(path string) (*config.Config, error) {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	newCloudClient = func(cfg *config.Config) (provisioning.CloudProvider, error) {
		return azure.NewClient(cfg)
	}

	newDatabaseOps = func() provisioning.DatabaseOps {
		return database.NewBootstrapper()
	}

	newClusterClients = func(cfg *config.Config) func(kubeconfig []byte) (provisioning.ClusterOps, provisioning.AddonInstaller, error) {
		return func(kubeconfig []byte) (provisioning.ClusterOps, provisioning.AddonInstaller, error) {
			client, err := k8s.NewClientFromKubeconfig(kubeconfig)
			if err != nil {
				return nil, nil, err
			}
			return client, addons.NewManager(kubeconfig, cfg.Mesh.Version), nil
		}
	}
)

// newWorkflowContext assembles the provisioning context all workflow nodes
// operate on.
func newWorkflowContext(ctx context.Context, cfg *config.Config) (*provisioning.Context, error) {
	cloud, err := newCloudClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud client: %w", err)
	}

	pctx := provisioning.NewContext(ctx, cfg, cloud, newDatabaseOps())
	pctx.NewClusterClients = newClusterClients(cfg)
	return pctx, nil
}

// printResult writes the per-node audit in execution table form.
func printResult(out io.Writer, result *orchestration.Result) {
	fmt.Fprintln(out)
	for _, n := range result.Nodes {
		line := fmt.Sprintf("  %-24s %s", n.ID, n.Status)
		if n.Err != nil && n.Status == orchestration.StatusFailed {
			line += "  " + n.Err.Error()
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)
}
