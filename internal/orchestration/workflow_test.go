package orchestration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocktrader-ops/tradectl/internal/config"
	"github.com/stocktrader-ops/tradectl/internal/provisioning"
	"github.com/stocktrader-ops/tradectl/internal/secretbridge"
)

// fakeCloud records provider calls and hands out stable references.
type fakeCloud struct {
	mu       sync.Mutex
	calls    []string
	secrets  map[string]string
	endpoint string

	rgExists bool
}

func newFakeCloud(endpoint string) *fakeCloud {
	return &fakeCloud{secrets: map[string]string{}, endpoint: endpoint, rgExists: true}
}

func (f *fakeCloud) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeCloud) called(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (f *fakeCloud) EnsureResourceGroup(context.Context) error {
	f.record("EnsureResourceGroup")
	return nil
}

func (f *fakeCloud) EnsureNetwork(context.Context) (provisioning.NetworkRef, error) {
	f.record("EnsureNetwork")
	return provisioning.NetworkRef{VNetID: "vnet-1", ClusterSubnetID: "subnet-c", DatabaseSubnetID: "subnet-d"}, nil
}

func (f *fakeCloud) EnsureCluster(_ context.Context, network provisioning.NetworkRef) (provisioning.ClusterRef, error) {
	f.record("EnsureCluster")
	if network.ClusterSubnetID == "" {
		return provisioning.ClusterRef{}, &provisioning.InvalidConfigurationError{Field: "network", Reason: "missing subnet"}
	}
	return provisioning.ClusterRef{Name: "dev-aks", FQDN: "dev.aks.example", OIDCIssuerURL: "https://oidc.example/dev"}, nil
}

func (f *fakeCloud) ClusterCredentials(context.Context) ([]byte, error) {
	f.record("ClusterCredentials")
	return []byte("kubeconfig"), nil
}

func (f *fakeCloud) EnsureDatabase(context.Context) (provisioning.DatabaseRef, error) {
	f.record("EnsureDatabase")
	return provisioning.DatabaseRef{FQDN: "dev-db.postgres.example"}, nil
}

func (f *fakeCloud) EnsureCache(context.Context) (provisioning.CacheRef, error) {
	f.record("EnsureCache")
	return provisioning.CacheRef{Hostname: "dev-cache.redis.example", Port: 6380, PrimaryKey: "cache-key-1"}, nil
}

func (f *fakeCloud) EnsureVault(context.Context) (provisioning.VaultRef, error) {
	f.record("EnsureVault")
	return provisioning.VaultRef{Name: "dev-vault", URI: "https://dev-vault.vault.azure.net/"}, nil
}

func (f *fakeCloud) EnsureIdentity(context.Context) (provisioning.IdentityRef, error) {
	f.record("EnsureIdentity")
	return provisioning.IdentityRef{ClientID: "client-1", PrincipalID: "principal-1"}, nil
}

func (f *fakeCloud) EnsureVaultAccess(_ context.Context, identity provisioning.IdentityRef) error {
	f.record("EnsureVaultAccess")
	if identity.PrincipalID == "" {
		return &provisioning.InvalidConfigurationError{Field: "identity", Reason: "missing principal"}
	}
	return nil
}

func (f *fakeCloud) PutSecret(_ context.Context, name, value string) error {
	f.record("PutSecret/" + name)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.secrets[name] = value
	return nil
}

func (f *fakeCloud) GetSecret(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.secrets[name], nil
}

func (f *fakeCloud) EnsureFederatedCredential(_ context.Context, identity provisioning.IdentityRef, issuerURL, namespace, serviceAccount string) error {
	f.record("EnsureFederatedCredential")
	if issuerURL == "" || namespace == "" || serviceAccount == "" {
		return &provisioning.InvalidConfigurationError{Field: "federation", Reason: "missing binding input"}
	}
	return nil
}

func (f *fakeCloud) EnsureFunctionApp(context.Context) (provisioning.FunctionRef, error) {
	f.record("EnsureFunctionApp")
	return provisioning.FunctionRef{Endpoint: f.endpoint}, nil
}

func (f *fakeCloud) ResourceGroupExists(context.Context) (bool, error) { return f.rgExists, nil }

func (f *fakeCloud) DeleteFunctionApp(context.Context) error   { f.record("DeleteFunctionApp"); return nil }
func (f *fakeCloud) DeleteIdentity(context.Context) error      { f.record("DeleteIdentity"); return nil }
func (f *fakeCloud) DeleteVault(context.Context) error         { f.record("DeleteVault"); return nil }
func (f *fakeCloud) DeleteCache(context.Context) error         { f.record("DeleteCache"); return nil }
func (f *fakeCloud) DeleteDatabase(context.Context) error      { f.record("DeleteDatabase"); return nil }
func (f *fakeCloud) DeleteCluster(context.Context) error       { f.record("DeleteCluster"); return nil }
func (f *fakeCloud) DeleteNetwork(context.Context) error       { f.record("DeleteNetwork"); return nil }
func (f *fakeCloud) DeleteResourceGroup(context.Context) error { f.record("DeleteResourceGroup"); return nil }

// readyClusterOps reports everything ready immediately.
type readyClusterOps struct {
	mu         sync.Mutex
	namespaces []string
	applied    int
	deleted    []string
}

func (c *readyClusterOps) EnsureNamespace(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namespaces = append(c.namespaces, name)
	return nil
}

func (c *readyClusterOps) DeleteNamespace(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, name)
	return nil
}

func (c *readyClusterOps) Apply(context.Context, []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applied++
	return nil
}

func (c *readyClusterOps) SecretExists(context.Context, string, string) (bool, error) {
	return true, nil
}

func (c *readyClusterOps) CRDEstablished(context.Context, string) (bool, error) { return true, nil }

func (c *readyClusterOps) WebhookEndpointsReady(context.Context, string, string) (bool, error) {
	return true, nil
}

func (c *readyClusterOps) DeploymentReady(context.Context, string, string) (bool, error) {
	return true, nil
}

func (c *readyClusterOps) LoadBalancerAddress(context.Context, string, string) (string, error) {
	return "20.30.40.50", nil
}

func (c *readyClusterOps) ResourceCondition(context.Context, string, string, string, string, string, string) (bool, error) {
	return true, nil
}

type fakeAddons struct {
	mu        sync.Mutex
	installed []string
	removed   []string
}

func (a *fakeAddons) InstallSecretOperator(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.installed = append(a.installed, "secret-operator")
	return nil
}

func (a *fakeAddons) UninstallSecretOperator(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removed = append(a.removed, "secret-operator")
	return nil
}

func (a *fakeAddons) InstallMesh(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.installed = append(a.installed, "mesh")
	return nil
}

func (a *fakeAddons) UninstallMesh(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removed = append(a.removed, "mesh")
	return nil
}

type readyDB struct{ bootstrapped bool }

func (d *readyDB) Ping(context.Context, string) bool { return true }

func (d *readyDB) Bootstrap(context.Context, string) error {
	d.bootstrapped = true
	return nil
}

func quoteServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stock_quote" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"IBM","price":188.25,"date":"2026-08-25","time":1787788800000}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testWorkflowContext(t *testing.T, cloud *fakeCloud, cluster *readyClusterOps, addons *fakeAddons, db *readyDB, cfg *config.Config) *provisioning.Context {
	t.Helper()
	pctx := provisioning.NewContext(context.Background(), cfg, cloud, db)
	pctx.Observer = &quietObserver{}
	pctx.Timeouts = &config.Timeouts{
		PollInterval:     time.Millisecond,
		DatabaseAttempts: 5,
		ClusterAttempts:  5,
		OperatorAttempts: 5,
		SecretAttempts:   5,
		AppAttempts:      5,
		FunctionAttempts: 5,
	}
	pctx.NewClusterClients = func([]byte) (provisioning.ClusterOps, provisioning.AddonInstaller, error) {
		return cluster, addons, nil
	}
	return pctx
}

func deployConfig() *config.Config {
	cfg := &config.Config{
		Environment:    "dev",
		SubscriptionID: "00000000-0000-0000-0000-000000000000",
		TenantID:       "00000000-0000-0000-0000-000000000001",
		Region:         "eastus",
	}
	cfg.Database.AdminPassword = "sufficiently-long-pw"
	cfg.ApplyDefaults()
	return cfg
}

func TestDeploy_FullRun(t *testing.T) {
	t.Parallel()

	srv := quoteServer(t)
	cloud := newFakeCloud(srv.URL)
	cluster := &readyClusterOps{}
	addons := &fakeAddons{}
	db := &readyDB{}
	cfg := deployConfig()
	cfg.Mesh.Enabled = true

	e, err := NewExecutor(DeployNodes(), cfg.Parallelism, true)
	require.NoError(t, err)

	pctx := testWorkflowContext(t, cloud, cluster, addons, db, cfg)
	result, err := e.Run(pctx)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	// Every provider surface was exercised.
	for _, call := range []string{
		"EnsureResourceGroup", "EnsureNetwork", "EnsureCluster", "ClusterCredentials",
		"EnsureDatabase", "EnsureCache", "EnsureVault", "EnsureIdentity",
		"EnsureVaultAccess", "EnsureFederatedCredential", "EnsureFunctionApp",
	} {
		assert.True(t, cloud.called(call), "missing provider call %s", call)
	}

	// Vault records carry the connection string and cache key.
	assert.Contains(t, cloud.secrets[secretbridge.SecretDatabaseConnString], "dev-db.postgres.example")
	assert.Contains(t, cloud.secrets[secretbridge.SecretDatabaseConnString], "sslmode=require")
	assert.Equal(t, "cache-key-1", cloud.secrets[secretbridge.SecretCachePrimaryKey])

	assert.True(t, db.bootstrapped)
	assert.Contains(t, cluster.namespaces, "stock-trader")
	assert.Contains(t, addons.installed, "secret-operator")
	assert.Contains(t, addons.installed, "mesh")
	assert.Equal(t, "20.30.40.50", pctx.State.AppAddress())
}

func TestDeploy_MeshDisabledSkipsMeshNodes(t *testing.T) {
	t.Parallel()

	srv := quoteServer(t)
	cloud := newFakeCloud(srv.URL)
	cluster := &readyClusterOps{}
	addons := &fakeAddons{}
	cfg := deployConfig()

	e, err := NewExecutor(DeployNodes(), cfg.Parallelism, true)
	require.NoError(t, err)

	pctx := testWorkflowContext(t, cloud, cluster, addons, &readyDB{}, cfg)
	result, err := e.Run(pctx)
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, result.Status("mesh"))
	assert.Equal(t, StatusSkipped, result.Status("mesh-ready"))
	assert.Equal(t, StatusSucceeded, result.Status("app"))
	assert.NotContains(t, addons.installed, "mesh")
}

func TestDeploy_RerunConverges(t *testing.T) {
	t.Parallel()

	srv := quoteServer(t)
	cloud := newFakeCloud(srv.URL)
	cluster := &readyClusterOps{}
	cfg := deployConfig()

	e, err := NewExecutor(DeployNodes(), cfg.Parallelism, true)
	require.NoError(t, err)

	pctx := testWorkflowContext(t, cloud, cluster, &fakeAddons{}, &readyDB{}, cfg)
	for i := 0; i < 2; i++ {
		result, err := e.Run(pctx)
		require.NoError(t, err)
		assert.True(t, result.Succeeded())
	}
}

// stuckOperatorCluster never establishes the secret-sync operator CRDs.
type stuckOperatorCluster struct{ readyClusterOps }

func (c *stuckOperatorCluster) CRDEstablished(context.Context, string) (bool, error) {
	return false, nil
}

func TestDeploy_OperatorNeverReadyBlocksSecretChain(t *testing.T) {
	t.Parallel()

	srv := quoteServer(t)
	cloud := newFakeCloud(srv.URL)
	cluster := &stuckOperatorCluster{}
	cfg := deployConfig()

	e, err := NewExecutor(DeployNodes(), cfg.Parallelism, true)
	require.NoError(t, err)

	pctx := provisioning.NewContext(context.Background(), cfg, cloud, &readyDB{})
	pctx.Observer = &quietObserver{}
	pctx.Timeouts = &config.Timeouts{
		PollInterval:     time.Millisecond,
		DatabaseAttempts: 5,
		ClusterAttempts:  5,
		OperatorAttempts: 3,
		SecretAttempts:   5,
		AppAttempts:      5,
		FunctionAttempts: 5,
	}
	pctx.NewClusterClients = func([]byte) (provisioning.ClusterOps, provisioning.AddonInstaller, error) {
		return cluster, &fakeAddons{}, nil
	}

	result, err := e.Run(pctx)
	require.Error(t, err)
	assert.False(t, result.Succeeded())

	// The readiness wait itself fails, with the exhausted attempt budget.
	assert.Equal(t, StatusFailed, result.Status("secret-operator-ready"))
	failure := result.FirstFailure()
	require.NotNil(t, failure)
	require.Equal(t, "secret-operator-ready", failure.ID)
	var timeout *provisioning.ReadinessTimeoutError
	require.ErrorAs(t, failure.Err, &timeout)
	assert.Equal(t, 3, timeout.Attempts)

	// Everything downstream of the wait never runs.
	for _, id := range []string{"secret-store", "app-secrets", "app", "app-ready"} {
		assert.Equal(t, StatusDependencyFailed, result.Status(id), "node %s", id)
	}
}

// stuckSystemWorkloads reports the cluster's system deployments as never
// scheduling while everything else stays ready.
type stuckSystemWorkloads struct {
	readyClusterOps
	probes int32
}

func (c *stuckSystemWorkloads) DeploymentReady(_ context.Context, namespace, _ string) (bool, error) {
	if namespace == "kube-system" {
		atomic.AddInt32(&c.probes, 1)
		return false, nil
	}
	return true, nil
}

func TestDeploy_ClusterReadinessHonorsAttemptBudget(t *testing.T) {
	t.Parallel()

	srv := quoteServer(t)
	cloud := newFakeCloud(srv.URL)
	cluster := &stuckSystemWorkloads{}
	cfg := deployConfig()

	e, err := NewExecutor(DeployNodes(), cfg.Parallelism, true)
	require.NoError(t, err)

	pctx := provisioning.NewContext(context.Background(), cfg, cloud, &readyDB{})
	pctx.Observer = &quietObserver{}
	pctx.Timeouts = &config.Timeouts{
		PollInterval:     time.Millisecond,
		DatabaseAttempts: 5,
		ClusterAttempts:  4,
		OperatorAttempts: 5,
		SecretAttempts:   5,
		AppAttempts:      5,
		FunctionAttempts: 5,
	}
	pctx.NewClusterClients = func([]byte) (provisioning.ClusterOps, provisioning.AddonInstaller, error) {
		return cluster, &fakeAddons{}, nil
	}

	result, err := e.Run(pctx)
	require.Error(t, err)

	assert.Equal(t, StatusFailed, result.Status("cluster-ready"))
	var timeout *provisioning.ReadinessTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 4, timeout.Attempts)
	assert.Equal(t, int32(4), atomic.LoadInt32(&cluster.probes))

	for _, id := range []string{"namespace", "secret-operator", "app"} {
		assert.Equal(t, StatusDependencyFailed, result.Status(id), "node %s", id)
	}
}

func TestDestroy_FullRun(t *testing.T) {
	t.Parallel()

	cloud := newFakeCloud("https://fn.example")
	cluster := &readyClusterOps{}
	addons := &fakeAddons{}
	cfg := deployConfig()
	cfg.Mesh.Enabled = true

	e, err := NewExecutor(DestroyNodes(), cfg.Parallelism, true)
	require.NoError(t, err)

	pctx := testWorkflowContext(t, cloud, cluster, addons, &readyDB{}, cfg)
	result, err := e.Run(pctx)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	assert.Contains(t, cluster.deleted, "stock-trader")
	assert.Contains(t, addons.removed, "mesh")
	assert.Contains(t, addons.removed, "secret-operator")
	for _, call := range []string{
		"DeleteCluster", "DeleteFunctionApp", "DeleteIdentity", "DeleteVault",
		"DeleteCache", "DeleteDatabase", "DeleteNetwork", "DeleteResourceGroup",
	} {
		assert.True(t, cloud.called(call), "missing delete call %s", call)
	}

	// The resource group goes last.
	cloud.mu.Lock()
	defer cloud.mu.Unlock()
	assert.Equal(t, "DeleteResourceGroup", cloud.calls[len(cloud.calls)-1])
}

func TestDestroy_UnreachableClusterStillRemovesCloudResources(t *testing.T) {
	t.Parallel()

	cloud := newFakeCloud("https://fn.example")
	cfg := deployConfig()

	e, err := NewExecutor(DestroyNodes(), cfg.Parallelism, true)
	require.NoError(t, err)

	pctx := provisioning.NewContext(context.Background(), cfg, &unreachableCloud{fakeCloud: cloud}, &readyDB{})
	pctx.Observer = &quietObserver{}
	pctx.Timeouts = &config.Timeouts{PollInterval: time.Millisecond}
	pctx.NewClusterClients = func([]byte) (provisioning.ClusterOps, provisioning.AddonInstaller, error) {
		return nil, nil, context.DeadlineExceeded
	}

	result, err := e.Run(pctx)
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	assert.True(t, cloud.called("DeleteResourceGroup"))
}

// unreachableCloud fails credential fetches; everything else passes through.
type unreachableCloud struct{ *fakeCloud }

func (u *unreachableCloud) ClusterCredentials(context.Context) ([]byte, error) {
	return nil, &provisioning.TransientProviderError{Resource: "cluster", Err: context.DeadlineExceeded}
}

func TestQuoteServing(t *testing.T) {
	t.Parallel()

	srv := quoteServer(t)
	assert.True(t, QuoteServing(context.Background(), http.DefaultClient, srv.URL))

	cold := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(cold.Close)
	assert.False(t, QuoteServing(context.Background(), http.DefaultClient, cold.URL))

	malformed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>warming up</html>"))
	}))
	t.Cleanup(malformed.Close)
	assert.False(t, QuoteServing(context.Background(), http.DefaultClient, malformed.URL))
}

func TestAppManifests(t *testing.T) {
	t.Parallel()

	cfg := deployConfig()
	out, err := appManifests(cfg, "https://dev-quote-fn.azurewebsites.net")
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "kind: Deployment")
	assert.Contains(t, text, "kind: Service")
	assert.Contains(t, text, "type: LoadBalancer")
	assert.Contains(t, text, "serviceAccountName: stock-trader")
	assert.Contains(t, text, secretbridge.SyncedSecretName)
	assert.Contains(t, text, "https://dev-quote-fn.azurewebsites.net/api/stock_quote")

	// Secret values are referenced, never inlined.
	assert.NotContains(t, text, "postgres://")
	assert.Contains(t, text, "secretKeyRef")
}
