package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/stocktrader-ops/tradectl/internal/orchestration"
	"github.com/stocktrader-ops/tradectl/internal/provisioning"
	"github.com/stocktrader-ops/tradectl/internal/secretbridge"
	"github.com/stocktrader-ops/tradectl/internal/util/naming"
)

// httpClient is swappable for tests.
var httpClient = http.DefaultClient

// Postcheck verifies a deployed environment component by component:
// vault records, database, synced cluster secret, application rollout, and
// the quote function. Each check reports independently so a single broken
// component is pinpointed.
func Postcheck(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	cloud, err := newCloudClient(cfg)
	if err != nil {
		return err
	}

	var connString string
	var cluster provisioning.ClusterOps

	fmt.Fprintf(out, "Running postchecks for environment %q:\n", cfg.Environment)
	return runChecks(out, []check{
		{
			name: "vault secrets present",
			run: func() error {
				conn, err := cloud.GetSecret(ctx, secretbridge.SecretDatabaseConnString)
				if err != nil {
					return err
				}
				if conn == "" {
					return fmt.Errorf("secret %s is empty", secretbridge.SecretDatabaseConnString)
				}
				connString = conn
				if _, err := cloud.GetSecret(ctx, secretbridge.SecretCachePrimaryKey); err != nil {
					return err
				}
				return nil
			},
		},
		{
			name: "database reachable",
			run: func() error {
				if connString == "" {
					return fmt.Errorf("skipped: no connection string in vault")
				}
				if !newDatabaseOps().Ping(ctx, connString) {
					return fmt.Errorf("database does not accept connections")
				}
				return nil
			},
		},
		{
			name: "cluster reachable",
			run: func() error {
				kubeconfig, err := cloud.ClusterCredentials(ctx)
				if err != nil {
					return err
				}
				c, _, err := newClusterClients(cfg)(kubeconfig)
				if err != nil {
					return err
				}
				cluster = c
				return nil
			},
		},
		{
			name: "secrets synced to cluster",
			run: func() error {
				if cluster == nil {
					return fmt.Errorf("skipped: cluster unreachable")
				}
				exists, err := cluster.SecretExists(ctx, cfg.Namespace, secretbridge.SyncedSecretName)
				if err != nil {
					return err
				}
				if !exists {
					return fmt.Errorf("secret %s/%s not found", cfg.Namespace, secretbridge.SyncedSecretName)
				}
				return nil
			},
		},
		{
			name: "application deployed",
			run: func() error {
				if cluster == nil {
					return fmt.Errorf("skipped: cluster unreachable")
				}
				ready, err := cluster.DeploymentReady(ctx, cfg.Namespace, orchestration.AppDeploymentName)
				if err != nil {
					return err
				}
				if !ready {
					return fmt.Errorf("deployment %s is not fully available", orchestration.AppDeploymentName)
				}
				addr, err := cluster.LoadBalancerAddress(ctx, cfg.Namespace, orchestration.AppDeploymentName)
				if err != nil {
					return err
				}
				if addr == "" {
					return fmt.Errorf("service %s has no external address", orchestration.AppDeploymentName)
				}
				fmt.Fprintf(out, "        application address: http://%s\n", addr)
				return nil
			},
		},
		{
			name: "quote function serving",
			run: func() error {
				endpoint := "https://" + naming.FunctionApp(cfg.Environment) + ".azurewebsites.net"
				if !orchestration.QuoteServing(ctx, httpClient, endpoint) {
					return fmt.Errorf("%s/api/stock_quote is not serving quotes", endpoint)
				}
				return nil
			},
		},
	})
}
