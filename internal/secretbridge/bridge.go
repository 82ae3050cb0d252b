// Package secretbridge materializes vault secrets as cluster Secrets
// through the External Secrets operator. The bridge is strictly ordered:
// vault access and identity federation must exist first, then the operator
// must be ready, then the store, then the synced secret. A failure at any
// step stops the chain so later steps never run against missing
// prerequisites.
package secretbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/stocktrader-ops/tradectl/internal/provisioning"
	"github.com/stocktrader-ops/tradectl/internal/util/poll"
)

// Vault secret record names written by the workflow and referenced by the
// ExternalSecret mapping. The synced cluster Secret carries the same keys.
const (
	SecretDatabaseConnString = "db-connstring"
	SecretCachePrimaryKey    = "cache-primary-key"

	// SyncedSecretName is the cluster Secret the operator keeps in sync
	// with the vault records. The application mounts this secret.
	SyncedSecretName = "app-secrets"

	operatorNamespace      = "external-secrets"
	operatorWebhookService = "external-secrets-webhook"

	storeCRD          = "clustersecretstores.external-secrets.io"
	externalSecretCRD = "externalsecrets.external-secrets.io"

	esoGroup   = "external-secrets.io"
	esoVersion = "v1beta1"
)

// Bridge wires a vault to the cluster's secret store.
type Bridge struct {
	cluster provisioning.ClusterOps

	namespace      string
	serviceAccount string
	storeName      string
	tenantID       string

	interval time.Duration
	attempts int
}

// New creates a Bridge syncing into the given namespace. The service
// account must be the one the identity federation was scoped to.
func New(cluster provisioning.ClusterOps, namespace, serviceAccount, storeName, tenantID string, interval time.Duration, attempts int) *Bridge {
	return &Bridge{
		cluster:        cluster,
		namespace:      namespace,
		serviceAccount: serviceAccount,
		storeName:      storeName,
		tenantID:       tenantID,
		interval:       interval,
		attempts:       attempts,
	}
}

// OperatorReady blocks until the operator's CRDs are established and its
// admission webhook answers. Custom resources applied earlier get rejected
// by the API server or the webhook, so this gates the store step.
func (b *Bridge) OperatorReady(ctx context.Context) error {
	for _, crd := range []string{storeCRD, externalSecretCRD} {
		err := poll.Until(ctx, "crd/"+crd, b.interval, b.attempts, func(ctx context.Context) (bool, error) {
			return b.cluster.CRDEstablished(ctx, crd)
		})
		if err != nil {
			return err
		}
	}

	return poll.Until(ctx, "webhook/"+operatorWebhookService, b.interval, b.attempts, func(ctx context.Context) (bool, error) {
		return b.cluster.WebhookEndpointsReady(ctx, operatorNamespace, operatorWebhookService)
	})
}

// MaterializeStore applies the service account and the ClusterSecretStore
// binding the vault to the cluster, then waits for the store to report
// Ready. identity.ClientID is the workload identity the store authenticates
// as through the federated credential.
func (b *Bridge) MaterializeStore(ctx context.Context, vault provisioning.VaultRef, identity provisioning.IdentityRef) error {
	if vault.URI == "" {
		return fmt.Errorf("cannot materialize secret store: vault has no URI")
	}
	if identity.ClientID == "" {
		return fmt.Errorf("cannot materialize secret store: identity has no client ID")
	}

	sa, err := serviceAccountManifest(b.namespace, b.serviceAccount, identity.ClientID)
	if err != nil {
		return err
	}
	if err := b.cluster.Apply(ctx, sa); err != nil {
		return fmt.Errorf("failed to apply service account: %w", err)
	}

	store, err := storeManifest(b.storeName, vault.URI, b.tenantID, b.namespace, b.serviceAccount)
	if err != nil {
		return err
	}
	if err := b.cluster.Apply(ctx, store); err != nil {
		return fmt.Errorf("failed to apply secret store: %w", err)
	}

	return poll.Until(ctx, "secret-store/"+b.storeName, b.interval, b.attempts, func(ctx context.Context) (bool, error) {
		return b.cluster.ResourceCondition(ctx, esoGroup, esoVersion, "clustersecretstores", "", b.storeName, "Ready")
	})
}

// MaterializeAppSecrets applies the ExternalSecret mapping the vault
// records into one cluster Secret, then waits for the operator to produce
// that Secret. The mapped records must already exist in the vault.
func (b *Bridge) MaterializeAppSecrets(ctx context.Context) error {
	es, err := externalSecretManifest(b.namespace, SyncedSecretName, b.storeName)
	if err != nil {
		return err
	}
	if err := b.cluster.Apply(ctx, es); err != nil {
		return fmt.Errorf("failed to apply external secret: %w", err)
	}

	return poll.Until(ctx, "secret/"+SyncedSecretName, b.interval, b.attempts, func(ctx context.Context) (bool, error) {
		return b.cluster.SecretExists(ctx, b.namespace, SyncedSecretName)
	})
}
