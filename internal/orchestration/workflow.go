package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stocktrader-ops/tradectl/internal/config"
	"github.com/stocktrader-ops/tradectl/internal/provisioning"
	"github.com/stocktrader-ops/tradectl/internal/secretbridge"
	"github.com/stocktrader-ops/tradectl/internal/util/naming"
	"github.com/stocktrader-ops/tradectl/internal/util/poll"
	"github.com/stocktrader-ops/tradectl/internal/util/retry"
)

// AppDeploymentName is the trading application's deployment and service
// name inside the cluster.
const AppDeploymentName = "trader"

const meshControlPlane = "istiod"

// providerRetry is the policy for cloud control plane mutations: transient
// provider failures are retried with backoff, fatal classifications
// (invalid input, collision, permission) return immediately.
func providerRetry() retry.Policy {
	p := retry.Exponential(5, 2*time.Second, 30*time.Second)
	p.Retryable = provisioning.Retryable
	return p
}

func meshEnabled(cfg *config.Config) bool { return cfg.Mesh.Enabled }

func newBridge(pctx *provisioning.Context) *secretbridge.Bridge {
	return secretbridge.New(
		pctx.Cluster(),
		pctx.Config.Namespace,
		pctx.Config.ServiceAccount,
		naming.SecretStore(pctx.Config.Environment),
		pctx.Config.TenantID,
		pctx.Timeouts.PollInterval,
		pctx.Timeouts.OperatorAttempts,
	)
}

func connString(pctx *provisioning.Context) string {
	db := pctx.Config.Database
	return pctx.State.DatabaseConnString(db.AdminUser, db.AdminPassword, db.Name)
}

// DeployNodes builds the full deployment graph for one environment.
func DeployNodes() []*Node {
	return []*Node{
		{
			ID: "resource-group",
			Run: func(pctx *provisioning.Context) error {
				return providerRetry().Do(pctx, func() error {
					return pctx.Cloud.EnsureResourceGroup(pctx)
				})
			},
		},
		{
			ID: "network", Requires: []string{"resource-group"},
			Run: func(pctx *provisioning.Context) error {
				return providerRetry().Do(pctx, func() error {
					ref, err := pctx.Cloud.EnsureNetwork(pctx)
					if err != nil {
						return err
					}
					pctx.State.SetNetwork(ref)
					return nil
				})
			},
		},
		{
			ID: "cluster", Requires: []string{"network"},
			Run: func(pctx *provisioning.Context) error {
				return providerRetry().Do(pctx, func() error {
					ref, err := pctx.Cloud.EnsureCluster(pctx, pctx.State.Network())
					if err != nil {
						return err
					}
					pctx.State.SetCluster(ref)
					return nil
				})
			},
		},
		{
			ID: "kubeconfig", Requires: []string{"cluster"},
			Run: func(pctx *provisioning.Context) error {
				kubeconfig, err := pctx.Cloud.ClusterCredentials(pctx)
				if err != nil {
					return err
				}
				pctx.State.SetKubeconfig(kubeconfig)

				cluster, addons, err := pctx.NewClusterClients(kubeconfig)
				if err != nil {
					return fmt.Errorf("failed to build cluster clients: %w", err)
				}
				pctx.SetClusterClients(cluster, addons)
				return nil
			},
		},
		{
			// ARM reports the cluster Succeeded before its system workloads
			// schedule; the control plane answering for coredns is the
			// usable-cluster signal.
			ID: "cluster-ready", Requires: []string{"kubeconfig"},
			Run: func(pctx *provisioning.Context) error {
				return poll.Until(pctx, "cluster/"+naming.Cluster(pctx.Config.Environment),
					pctx.Timeouts.PollInterval, pctx.Timeouts.ClusterAttempts,
					func(ctx context.Context) (bool, error) {
						return pctx.Cluster().DeploymentReady(ctx, "kube-system", "coredns")
					})
			},
		},
		{
			ID: "namespace", Requires: []string{"cluster-ready"},
			Run: func(pctx *provisioning.Context) error {
				return pctx.Cluster().EnsureNamespace(pctx, pctx.Config.Namespace)
			},
		},
		{
			ID: "database", Requires: []string{"network"},
			Run: func(pctx *provisioning.Context) error {
				return providerRetry().Do(pctx, func() error {
					ref, err := pctx.Cloud.EnsureDatabase(pctx)
					if err != nil {
						return err
					}
					pctx.State.SetDatabase(ref)
					return nil
				})
			},
		},
		{
			ID: "database-ready", Requires: []string{"database"},
			Run: func(pctx *provisioning.Context) error {
				target := "database/" + naming.Database(pctx.Config.Environment)
				return poll.Until(pctx, target, pctx.Timeouts.PollInterval, pctx.Timeouts.DatabaseAttempts,
					func(ctx context.Context) (bool, error) {
						return pctx.DB.Ping(ctx, connString(pctx)), nil
					})
			},
		},
		{
			ID: "database-schema", Requires: []string{"database-ready"},
			Run: func(pctx *provisioning.Context) error {
				return retry.Fixed(3, 5*time.Second).Do(pctx, func() error {
					return pctx.DB.Bootstrap(pctx, connString(pctx))
				})
			},
		},
		{
			ID: "cache", Requires: []string{"resource-group"},
			Run: func(pctx *provisioning.Context) error {
				return providerRetry().Do(pctx, func() error {
					ref, err := pctx.Cloud.EnsureCache(pctx)
					if err != nil {
						return err
					}
					pctx.State.SetCache(ref)
					return nil
				})
			},
		},
		{
			ID: "vault", Requires: []string{"resource-group"},
			Run: func(pctx *provisioning.Context) error {
				return providerRetry().Do(pctx, func() error {
					ref, err := pctx.Cloud.EnsureVault(pctx)
					if err != nil {
						return err
					}
					pctx.State.SetVault(ref)
					return nil
				})
			},
		},
		{
			ID: "identity", Requires: []string{"resource-group"},
			Run: func(pctx *provisioning.Context) error {
				return providerRetry().Do(pctx, func() error {
					ref, err := pctx.Cloud.EnsureIdentity(pctx)
					if err != nil {
						return err
					}
					pctx.State.SetIdentity(ref)
					return nil
				})
			},
		},
		{
			ID: "vault-access", Requires: []string{"vault", "identity"},
			Run: func(pctx *provisioning.Context) error {
				return providerRetry().Do(pctx, func() error {
					return pctx.Cloud.EnsureVaultAccess(pctx, pctx.State.Identity())
				})
			},
		},
		{
			ID: "vault-secrets", Requires: []string{"vault", "database", "cache"},
			Run: func(pctx *provisioning.Context) error {
				return providerRetry().Do(pctx, func() error {
					g, gctx := errgroup.WithContext(pctx)
					g.Go(func() error {
						return pctx.Cloud.PutSecret(gctx, secretbridge.SecretDatabaseConnString, connString(pctx))
					})
					g.Go(func() error {
						return pctx.Cloud.PutSecret(gctx, secretbridge.SecretCachePrimaryKey, pctx.State.Cache().PrimaryKey)
					})
					return g.Wait()
				})
			},
		},
		{
			ID: "federation", Requires: []string{"identity", "cluster"},
			Run: func(pctx *provisioning.Context) error {
				issuer := pctx.State.Cluster().OIDCIssuerURL
				if issuer == "" {
					return fmt.Errorf("cluster has no OIDC issuer URL")
				}
				return providerRetry().Do(pctx, func() error {
					return pctx.Cloud.EnsureFederatedCredential(pctx, pctx.State.Identity(),
						issuer, pctx.Config.Namespace, pctx.Config.ServiceAccount)
				})
			},
		},
		{
			ID: "secret-operator", Requires: []string{"cluster-ready"},
			Run: func(pctx *provisioning.Context) error {
				return pctx.Addons().InstallSecretOperator(pctx)
			},
		},
		{
			ID: "secret-operator-ready", Requires: []string{"secret-operator"},
			Run: func(pctx *provisioning.Context) error {
				return newBridge(pctx).OperatorReady(pctx)
			},
		},
		{
			ID: "secret-store", Requires: []string{"secret-operator-ready", "vault-access", "federation"},
			Run: func(pctx *provisioning.Context) error {
				return newBridge(pctx).MaterializeStore(pctx, pctx.State.Vault(), pctx.State.Identity())
			},
		},
		{
			ID: "app-secrets", Requires: []string{"secret-store", "vault-secrets", "namespace"},
			Run: func(pctx *provisioning.Context) error {
				return newBridge(pctx).MaterializeAppSecrets(pctx)
			},
		},
		{
			ID: "mesh", Requires: []string{"cluster-ready"}, Guard: meshEnabled,
			Run: func(pctx *provisioning.Context) error {
				return pctx.Addons().InstallMesh(pctx)
			},
		},
		{
			ID: "mesh-ready", Requires: []string{"mesh"}, Guard: meshEnabled,
			Run: func(pctx *provisioning.Context) error {
				return poll.Until(pctx, "deployment/"+meshControlPlane,
					pctx.Timeouts.PollInterval, pctx.Timeouts.OperatorAttempts,
					func(ctx context.Context) (bool, error) {
						return pctx.Cluster().DeploymentReady(ctx, "istio-system", meshControlPlane)
					})
			},
		},
		{
			ID: "function", Requires: []string{"resource-group"},
			Run: func(pctx *provisioning.Context) error {
				return providerRetry().Do(pctx, func() error {
					ref, err := pctx.Cloud.EnsureFunctionApp(pctx)
					if err != nil {
						return err
					}
					pctx.State.SetFunction(ref)
					return nil
				})
			},
		},
		{
			ID: "function-ready", Requires: []string{"function"},
			Run: func(pctx *provisioning.Context) error {
				endpoint := pctx.State.Function().Endpoint
				return poll.Until(pctx, "function/"+endpoint,
					pctx.Timeouts.PollInterval, pctx.Timeouts.FunctionAttempts,
					func(ctx context.Context) (bool, error) {
						return QuoteServing(ctx, pctx.HTTP, endpoint), nil
					})
			},
		},
		{
			ID: "app", Requires: []string{"app-secrets", "database-schema", "cache", "mesh-ready", "function-ready"},
			Run: func(pctx *provisioning.Context) error {
				manifest, err := appManifests(pctx.Config, pctx.State.Function().Endpoint)
				if err != nil {
					return err
				}
				return pctx.Cluster().Apply(pctx, manifest)
			},
		},
		{
			ID: "app-ready", Requires: []string{"app"},
			Run: func(pctx *provisioning.Context) error {
				ns := pctx.Config.Namespace
				err := poll.Until(pctx, "deployment/"+AppDeploymentName,
					pctx.Timeouts.PollInterval, pctx.Timeouts.AppAttempts,
					func(ctx context.Context) (bool, error) {
						ready, err := pctx.Cluster().DeploymentReady(ctx, ns, AppDeploymentName)
						if err != nil || !ready {
							return false, err
						}
						addr, err := pctx.Cluster().LoadBalancerAddress(ctx, ns, AppDeploymentName)
						if err != nil || addr == "" {
							return false, err
						}
						pctx.State.SetAppAddress(addr)
						return true, nil
					})
				if err != nil {
					return err
				}
				pctx.Observer.Printf("application reachable at http://%s", pctx.State.AppAddress())
				return nil
			},
		},
	}
}

// stockQuote matches the function app's response body.
type stockQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Date   string  `json:"date"`
	Time   int64   `json:"time"`
}

// QuoteServing probes the quote endpoint with a known symbol. Any transport
// error, non-200 status, or malformed body reports not ready; function apps
// routinely 503 while cold starting.
func QuoteServing(ctx context.Context, client *http.Client, endpoint string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/api/stock_quote?symbol=IBM", nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	var quote stockQuote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return false
	}
	return quote.Symbol != "" && quote.Price > 0
}
