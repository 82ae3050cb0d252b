// Package provisioning provides the shared types and interfaces of the
// deployment workflow: the error taxonomy, the run state carrying external
// resource references, and the interfaces the graph nodes operate through.
//
// The workflow itself is organized into focused packages:
//   - internal/dag: the dependency graph
//   - internal/orchestration: node scheduling and the deployment graph
//   - internal/platform/azure: the cloud provider implementation
//   - internal/k8s, internal/addons: cluster-side operations
//   - internal/secretbridge: vault-to-cluster secret materialization
package provisioning

import "context"

// CloudProvider is the set of idempotent upsert, probe, and teardown
// operations the workflow performs against the cloud control plane.
// Implemented by internal/platform/azure.Client.
//
// Every Ensure method converges the resource toward the configured state:
// it creates the resource if absent and is safe to repeat against an
// already-provisioned environment. Fatal failure classes (invalid input,
// name collision, permission denied) are returned as the corresponding
// taxonomy errors; everything else is assumed transient and retried by the
// caller's policy.
type CloudProvider interface {
	EnsureResourceGroup(ctx context.Context) error
	EnsureNetwork(ctx context.Context) (NetworkRef, error)
	EnsureCluster(ctx context.Context, network NetworkRef) (ClusterRef, error)
	ClusterCredentials(ctx context.Context) ([]byte, error)
	EnsureDatabase(ctx context.Context) (DatabaseRef, error)
	EnsureCache(ctx context.Context) (CacheRef, error)
	EnsureVault(ctx context.Context) (VaultRef, error)
	EnsureIdentity(ctx context.Context) (IdentityRef, error)

	// EnsureVaultAccess grants the workload identity read access to vault
	// secrets.
	EnsureVaultAccess(ctx context.Context, identity IdentityRef) error

	// PutSecret writes one secret record to the vault. Rotation is an
	// overwrite under the same key; values are never mutated in place.
	PutSecret(ctx context.Context, name, value string) error

	// GetSecret reads a secret record back; used by postcheck only.
	GetSecret(ctx context.Context, name string) (string, error)

	// EnsureFederatedCredential binds the cluster service account
	// (namespace/name) to the workload identity through the cluster's OIDC
	// issuer.
	EnsureFederatedCredential(ctx context.Context, identity IdentityRef, issuerURL, namespace, serviceAccount string) error

	EnsureFunctionApp(ctx context.Context) (FunctionRef, error)

	// ResourceGroupExists reports whether the environment's resource group
	// is already present; used by precheck and teardown.
	ResourceGroupExists(ctx context.Context) (bool, error)

	// Teardown deletions, invoked in reverse dependency order.
	DeleteFunctionApp(ctx context.Context) error
	DeleteIdentity(ctx context.Context) error
	DeleteVault(ctx context.Context) error
	DeleteCache(ctx context.Context) error
	DeleteDatabase(ctx context.Context) error
	DeleteCluster(ctx context.Context) error
	DeleteNetwork(ctx context.Context) error
	DeleteResourceGroup(ctx context.Context) error
}

// ClusterOps is the set of cluster-side operations the workflow performs
// once a kubeconfig exists. Implemented by internal/k8s.Client.
type ClusterOps interface {
	EnsureNamespace(ctx context.Context, name string) error
	DeleteNamespace(ctx context.Context, name string) error

	// Apply applies a YAML manifest with upsert semantics.
	Apply(ctx context.Context, manifest []byte) error

	SecretExists(ctx context.Context, namespace, name string) (bool, error)
	CRDEstablished(ctx context.Context, name string) (bool, error)
	WebhookEndpointsReady(ctx context.Context, namespace, service string) (bool, error)
	DeploymentReady(ctx context.Context, namespace, name string) (bool, error)
	LoadBalancerAddress(ctx context.Context, namespace, service string) (string, error)

	// ResourceCondition reports whether a custom resource reports the given
	// condition type as "True". Cluster-scoped resources pass an empty
	// namespace.
	ResourceCondition(ctx context.Context, group, version, resource, namespace, name, condition string) (bool, error)
}

// AddonInstaller installs and removes the cluster add-ons (the secret-sync
// operator and the optional service mesh). Implemented by
// internal/addons.Manager.
type AddonInstaller interface {
	InstallSecretOperator(ctx context.Context) error
	UninstallSecretOperator(ctx context.Context) error
	InstallMesh(ctx context.Context) error
	UninstallMesh(ctx context.Context) error
}

// DatabaseOps covers the database readiness probe and the idempotent schema
// bootstrap. Implemented by internal/database.Bootstrapper.
type DatabaseOps interface {
	// Ping reports whether the database accepts connections. Observation
	// only; connection failures report not-ready, never an error.
	Ping(ctx context.Context, connString string) bool

	// Bootstrap applies the application schema. Safe to repeat.
	Bootstrap(ctx context.Context, connString string) error
}
