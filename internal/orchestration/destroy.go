package orchestration

import (
	"github.com/stocktrader-ops/tradectl/internal/provisioning"
)

// DestroyNodes builds the teardown graph: the deployment dependencies in
// reverse, so cluster-side components are removed before the resources
// hosting them and the resource group goes last.
//
// Teardown is idempotent. Deletes tolerate already-absent resources, and
// the cluster-access node succeeds even when the cluster is gone so the
// cloud-side teardown still proceeds on a re-run against a partially
// destroyed environment.
func DestroyNodes() []*Node {
	return []*Node{
		{
			ID: "cluster-access",
			Run: func(pctx *provisioning.Context) error {
				kubeconfig, err := pctx.Cloud.ClusterCredentials(pctx)
				if err != nil {
					// No reachable cluster means no cluster-side cleanup to
					// do. The remaining nodes observe the missing clients.
					pctx.Observer.Printf("cluster unreachable, skipping in-cluster cleanup: %v", err)
					return nil
				}
				cluster, addons, err := pctx.NewClusterClients(kubeconfig)
				if err != nil {
					pctx.Observer.Printf("cluster clients unavailable, skipping in-cluster cleanup: %v", err)
					return nil
				}
				pctx.SetClusterClients(cluster, addons)
				return nil
			},
		},
		{
			ID: "mesh-uninstall", Requires: []string{"cluster-access"}, Guard: meshEnabled,
			Run: func(pctx *provisioning.Context) error {
				if pctx.Addons() == nil {
					return nil
				}
				return pctx.Addons().UninstallMesh(pctx)
			},
		},
		{
			ID: "secret-operator-uninstall", Requires: []string{"cluster-access"},
			Run: func(pctx *provisioning.Context) error {
				if pctx.Addons() == nil {
					return nil
				}
				return pctx.Addons().UninstallSecretOperator(pctx)
			},
		},
		{
			ID: "namespace-delete", Requires: []string{"cluster-access"},
			Run: func(pctx *provisioning.Context) error {
				if pctx.Cluster() == nil {
					return nil
				}
				return pctx.Cluster().DeleteNamespace(pctx, pctx.Config.Namespace)
			},
		},
		{
			ID:       "cluster-delete",
			Requires: []string{"mesh-uninstall", "secret-operator-uninstall", "namespace-delete"},
			Run: func(pctx *provisioning.Context) error {
				if err := providerRetry().Do(pctx, func() error {
					return pctx.Cloud.DeleteCluster(pctx)
				}); err != nil {
					return err
				}
				pctx.Observer.Event(provisioning.Event{
					Type: provisioning.EventResourceDeleted, Node: "cluster-delete",
				})
				return nil
			},
		},
		{
			ID: "function-delete",
			Run: func(pctx *provisioning.Context) error {
				if err := providerRetry().Do(pctx, func() error {
					return pctx.Cloud.DeleteFunctionApp(pctx)
				}); err != nil {
					return err
				}
				pctx.Observer.Event(provisioning.Event{
					Type: provisioning.EventResourceDeleted, Node: "function-delete",
				})
				return nil
			},
		},
		{
			ID: "vault-delete",
			Run: func(pctx *provisioning.Context) error {
				if err := providerRetry().Do(pctx, func() error {
					return pctx.Cloud.DeleteVault(pctx)
				}); err != nil {
					return err
				}
				pctx.Observer.Event(provisioning.Event{
					Type: provisioning.EventResourceDeleted, Node: "vault-delete",
				})
				return nil
			},
		},
		{
			ID: "identity-delete", Requires: []string{"vault-delete"},
			Run: func(pctx *provisioning.Context) error {
				if err := providerRetry().Do(pctx, func() error {
					return pctx.Cloud.DeleteIdentity(pctx)
				}); err != nil {
					return err
				}
				pctx.Observer.Event(provisioning.Event{
					Type: provisioning.EventResourceDeleted, Node: "identity-delete",
				})
				return nil
			},
		},
		{
			ID: "cache-delete",
			Run: func(pctx *provisioning.Context) error {
				if err := providerRetry().Do(pctx, func() error {
					return pctx.Cloud.DeleteCache(pctx)
				}); err != nil {
					return err
				}
				pctx.Observer.Event(provisioning.Event{
					Type: provisioning.EventResourceDeleted, Node: "cache-delete",
				})
				return nil
			},
		},
		{
			ID: "database-delete",
			Run: func(pctx *provisioning.Context) error {
				if err := providerRetry().Do(pctx, func() error {
					return pctx.Cloud.DeleteDatabase(pctx)
				}); err != nil {
					return err
				}
				pctx.Observer.Event(provisioning.Event{
					Type: provisioning.EventResourceDeleted, Node: "database-delete",
				})
				return nil
			},
		},
		{
			ID: "network-delete", Requires: []string{"cluster-delete", "database-delete"},
			Run: func(pctx *provisioning.Context) error {
				if err := providerRetry().Do(pctx, func() error {
					return pctx.Cloud.DeleteNetwork(pctx)
				}); err != nil {
					return err
				}
				pctx.Observer.Event(provisioning.Event{
					Type: provisioning.EventResourceDeleted, Node: "network-delete",
				})
				return nil
			},
		},
		{
			ID: "resource-group-delete",
			Requires: []string{
				"function-delete", "identity-delete", "cache-delete", "network-delete",
			},
			Run: func(pctx *provisioning.Context) error {
				if err := providerRetry().Do(pctx, func() error {
					return pctx.Cloud.DeleteResourceGroup(pctx)
				}); err != nil {
					return err
				}
				pctx.Observer.Event(provisioning.Event{
					Type: provisioning.EventResourceDeleted, Node: "resource-group-delete",
				})
				return nil
			},
		},
	}
}
