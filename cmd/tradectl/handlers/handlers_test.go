package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocktrader-ops/tradectl/internal/config"
	"github.com/stocktrader-ops/tradectl/internal/config/wizard"
	"github.com/stocktrader-ops/tradectl/internal/provisioning"
	"github.com/stocktrader-ops/tradectl/internal/secretbridge"
)

// The handler factories are package variables, so these tests do not run in
// parallel; each test swaps fakes in and restores them on cleanup.

func testConfig() *config.Config {
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

func stubLoadConfig(t *testing.T, cfg *config.Config) {
	t.Helper()
	orig := loadConfig
	loadConfig = func(string) (*config.Config, error) { return cfg, nil }
	t.Cleanup(func() { loadConfig = orig })
}

func stubCloud(t *testing.T, cloud provisioning.CloudProvider) {
	t.Helper()
	orig := newCloudClient
	newCloudClient = func(*config.Config) (provisioning.CloudProvider, error) { return cloud, nil }
	t.Cleanup(func() { newCloudClient = orig })
}

func stubClusterClients(t *testing.T, cluster provisioning.ClusterOps, addons provisioning.AddonInstaller) {
	t.Helper()
	orig := newClusterClients
	newClusterClients = func(*config.Config) func([]byte) (provisioning.ClusterOps, provisioning.AddonInstaller, error) {
		return func([]byte) (provisioning.ClusterOps, provisioning.AddonInstaller, error) {
			return cluster, addons, nil
		}
	}
	t.Cleanup(func() { newClusterClients = orig })
}

func stubDatabaseOps(t *testing.T, db provisioning.DatabaseOps) {
	t.Helper()
	orig := newDatabaseOps
	newDatabaseOps = func() provisioning.DatabaseOps { return db }
	t.Cleanup(func() { newDatabaseOps = orig })
}

// stubCloudProvider is an all-green CloudProvider for handler tests.
type stubCloudProvider struct {
	mu       sync.Mutex
	deletes  []string
	secrets  map[string]string
	endpoint string
	rgExists bool
}

func newStubCloud(endpoint string) *stubCloudProvider {
	return &stubCloudProvider{
		secrets:  map[string]string{},
		endpoint: endpoint,
		rgExists: true,
	}
}

func (s *stubCloudProvider) EnsureResourceGroup(context.Context) error { return nil }

func (s *stubCloudProvider) EnsureNetwork(context.Context) (provisioning.NetworkRef, error) {
	return provisioning.NetworkRef{VNetID: "v", ClusterSubnetID: "c", DatabaseSubnetID: "d"}, nil
}

func (s *stubCloudProvider) EnsureCluster(context.Context, provisioning.NetworkRef) (provisioning.ClusterRef, error) {
	return provisioning.ClusterRef{Name: "aks", OIDCIssuerURL: "https://oidc.example"}, nil
}

func (s *stubCloudProvider) ClusterCredentials(context.Context) ([]byte, error) {
	return []byte("kc"), nil
}

func (s *stubCloudProvider) EnsureDatabase(context.Context) (provisioning.DatabaseRef, error) {
	return provisioning.DatabaseRef{FQDN: "db.example"}, nil
}

func (s *stubCloudProvider) EnsureCache(context.Context) (provisioning.CacheRef, error) {
	return provisioning.CacheRef{Hostname: "cache.example", Port: 6380, PrimaryKey: "k"}, nil
}

func (s *stubCloudProvider) EnsureVault(context.Context) (provisioning.VaultRef, error) {
	return provisioning.VaultRef{Name: "v", URI: "https://v.vault.azure.net/"}, nil
}

func (s *stubCloudProvider) EnsureIdentity(context.Context) (provisioning.IdentityRef, error) {
	return provisioning.IdentityRef{ClientID: "cid", PrincipalID: "pid"}, nil
}

func (s *stubCloudProvider) EnsureVaultAccess(context.Context, provisioning.IdentityRef) error {
	return nil
}

func (s *stubCloudProvider) PutSecret(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[name] = value
	return nil
}

func (s *stubCloudProvider) GetSecret(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secrets[name], nil
}

func (s *stubCloudProvider) EnsureFederatedCredential(context.Context, provisioning.IdentityRef, string, string, string) error {
	return nil
}

func (s *stubCloudProvider) EnsureFunctionApp(context.Context) (provisioning.FunctionRef, error) {
	return provisioning.FunctionRef{Endpoint: s.endpoint}, nil
}

func (s *stubCloudProvider) ResourceGroupExists(context.Context) (bool, error) {
	return s.rgExists, nil
}

func (s *stubCloudProvider) delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, name)
	return nil
}

func (s *stubCloudProvider) DeleteFunctionApp(context.Context) error   { return s.delete("function") }
func (s *stubCloudProvider) DeleteIdentity(context.Context) error      { return s.delete("identity") }
func (s *stubCloudProvider) DeleteVault(context.Context) error         { return s.delete("vault") }
func (s *stubCloudProvider) DeleteCache(context.Context) error         { return s.delete("cache") }
func (s *stubCloudProvider) DeleteDatabase(context.Context) error      { return s.delete("database") }
func (s *stubCloudProvider) DeleteCluster(context.Context) error       { return s.delete("cluster") }
func (s *stubCloudProvider) DeleteNetwork(context.Context) error       { return s.delete("network") }
func (s *stubCloudProvider) DeleteResourceGroup(context.Context) error { return s.delete("resource-group") }

// stubCluster reports everything ready.
type stubCluster struct{}

func (stubCluster) EnsureNamespace(context.Context, string) error { return nil }
func (stubCluster) DeleteNamespace(context.Context, string) error { return nil }
func (stubCluster) Apply(context.Context, []byte) error           { return nil }

func (stubCluster) SecretExists(context.Context, string, string) (bool, error) { return true, nil }
func (stubCluster) CRDEstablished(context.Context, string) (bool, error)       { return true, nil }

func (stubCluster) WebhookEndpointsReady(context.Context, string, string) (bool, error) {
	return true, nil
}

func (stubCluster) DeploymentReady(context.Context, string, string) (bool, error) {
	return true, nil
}

func (stubCluster) LoadBalancerAddress(context.Context, string, string) (string, error) {
	return "20.1.2.3", nil
}

func (stubCluster) ResourceCondition(context.Context, string, string, string, string, string, string) (bool, error) {
	return true, nil
}

type stubAddons struct{}

func (stubAddons) InstallSecretOperator(context.Context) error   { return nil }
func (stubAddons) UninstallSecretOperator(context.Context) error { return nil }
func (stubAddons) InstallMesh(context.Context) error             { return nil }
func (stubAddons) UninstallMesh(context.Context) error           { return nil }

type stubDB struct{}

func (stubDB) Ping(context.Context, string) bool       { return true }
func (stubDB) Bootstrap(context.Context, string) error { return nil }

// rewriteHost redirects every request to the test server regardless of the
// requested host.
type rewriteHost struct {
	target string
}

func (r rewriteHost) RoundTrip(req *http.Request) (*http.Response, error) {
	u, err := url.Parse(r.target)
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.URL.Scheme = u.Scheme
	clone.URL.Host = u.Host
	return http.DefaultTransport.RoundTrip(clone)
}

func quoteStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"IBM","price":188.25,"date":"2026-08-25","time":1787788800000}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func stubTerminal(t *testing.T, attached bool) {
	t.Helper()
	orig := stdinIsTerminal
	stdinIsTerminal = func() bool { return attached }
	t.Cleanup(func() { stdinIsTerminal = orig })
}

func stubWizard(t *testing.T, result *wizard.Result, err error) {
	t.Helper()
	orig := runWizard
	runWizard = func(context.Context) (*wizard.Result, error) { return result, err }
	t.Cleanup(func() { runWizard = orig })
}

func TestInit_StarterFileWithoutTerminal(t *testing.T) {
	stubTerminal(t, false)

	dir := t.TempDir()
	path := filepath.Join(dir, "tradectl.yaml")
	var out bytes.Buffer

	require.NoError(t, Init(context.Background(), path, false, &out))
	assert.Contains(t, out.String(), "Wrote")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// The starter file is loadable once its placeholders are filled.
	cfg, err := config.Load(data)
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Environment)

	// A second init refuses to clobber the file without --force.
	err = Init(context.Background(), path, false, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, Init(context.Background(), path, true, &out))
}

func TestInit_WizardOnTerminal(t *testing.T) {
	stubTerminal(t, true)
	stubWizard(t, &wizard.Result{
		Environment:    "staging",
		Region:         "westeurope",
		SubscriptionID: "11111111-1111-1111-1111-111111111111",
		TenantID:       "22222222-2222-2222-2222-222222222222",
		NodeCount:      5,
		NodeSize:       "Standard_D4s_v3",
		AdminPassword:  "wizard-made-password",
		MeshEnabled:    true,
	}, nil)

	path := filepath.Join(t.TempDir(), "tradectl.yaml")
	var out bytes.Buffer

	require.NoError(t, Init(context.Background(), path, false, &out))
	assert.Contains(t, out.String(), `environment "staging"`)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "westeurope", cfg.Region)
	assert.Equal(t, 5, cfg.Cluster.NodeCount)
	assert.True(t, cfg.Mesh.Enabled)
}

func TestInit_WizardCanceled(t *testing.T) {
	stubTerminal(t, true)
	stubWizard(t, nil, errors.New("user aborted"))

	path := filepath.Join(t.TempDir(), "tradectl.yaml")
	var out bytes.Buffer

	err := Init(context.Background(), path, false, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wizard canceled")

	// Nothing is written on cancellation.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPlan(t *testing.T) {
	stubLoadConfig(t, testConfig())

	var out bytes.Buffer
	require.NoError(t, Plan("tradectl.yaml", &out))

	text := out.String()
	assert.Contains(t, text, "resource-group")
	assert.Contains(t, text, "app-ready")
	// Mesh is disabled in the test config, so its nodes are pruned.
	assert.Contains(t, text, "[skipped: feature disabled]")
}

func TestApply_EndToEnd(t *testing.T) {
	srv := quoteStub(t)
	cloud := newStubCloud(srv.URL)

	stubLoadConfig(t, testConfig())
	stubCloud(t, cloud)
	stubClusterClients(t, stubCluster{}, stubAddons{})
	stubDatabaseOps(t, stubDB{})

	require.NoError(t, Apply(context.Background(), "tradectl.yaml"))
	assert.Contains(t, cloud.secrets[secretbridge.SecretDatabaseConnString], "db.example")
}

func TestDestroy_NothingToDo(t *testing.T) {
	cloud := newStubCloud("https://fn.example")
	cloud.rgExists = false

	stubLoadConfig(t, testConfig())
	stubCloud(t, cloud)
	stubClusterClients(t, stubCluster{}, stubAddons{})
	stubDatabaseOps(t, stubDB{})

	require.NoError(t, Destroy(context.Background(), "tradectl.yaml", true))
	assert.Empty(t, cloud.deletes)
}

func TestDestroy_RunsDeletes(t *testing.T) {
	cloud := newStubCloud("https://fn.example")

	stubLoadConfig(t, testConfig())
	stubCloud(t, cloud)
	stubClusterClients(t, stubCluster{}, stubAddons{})
	stubDatabaseOps(t, stubDB{})

	require.NoError(t, Destroy(context.Background(), "tradectl.yaml", true))
	assert.Contains(t, cloud.deletes, "resource-group")
	assert.Equal(t, "resource-group", cloud.deletes[len(cloud.deletes)-1])
}

func TestDestroy_ConfirmationMismatch(t *testing.T) {
	stubLoadConfig(t, testConfig())

	orig := confirmDestroy
	confirmDestroy = func(string) (bool, error) { return false, nil }
	t.Cleanup(func() { confirmDestroy = orig })

	err := Destroy(context.Background(), "tradectl.yaml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confirmation")
}

func TestPostcheck_AllGreen(t *testing.T) {
	srv := quoteStub(t)
	cloud := newStubCloud(srv.URL)
	cloud.secrets[secretbridge.SecretDatabaseConnString] = "postgres://u:p@db.example:5432/traderdb?sslmode=require"
	cloud.secrets[secretbridge.SecretCachePrimaryKey] = "k"

	stubLoadConfig(t, testConfig())
	stubCloud(t, cloud)
	stubClusterClients(t, stubCluster{}, stubAddons{})
	stubDatabaseOps(t, stubDB{})

	// The function check derives its endpoint from the environment name;
	// rewrite the host so it lands on the test server.
	origHTTP := httpClient
	httpClient = &http.Client{Transport: rewriteHost{target: srv.URL}}
	t.Cleanup(func() { httpClient = origHTTP })

	var out bytes.Buffer
	err := Postcheck(context.Background(), "tradectl.yaml", &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "ok    vault secrets present")
	assert.Contains(t, text, "ok    database reachable")
	assert.Contains(t, text, "ok    secrets synced to cluster")
	assert.Contains(t, text, "ok    application deployed")
	assert.Contains(t, text, "ok    quote function serving")
	assert.Contains(t, text, "application address: http://20.1.2.3")
}

func TestPostcheck_MissingVaultSecretCascades(t *testing.T) {
	cloud := newStubCloud("https://fn.example")

	stubLoadConfig(t, testConfig())
	stubCloud(t, cloud)
	stubClusterClients(t, stubCluster{}, stubAddons{})
	stubDatabaseOps(t, stubDB{})

	var out bytes.Buffer
	err := Postcheck(context.Background(), "tradectl.yaml", &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "FAIL  vault secrets present")
	assert.Contains(t, out.String(), "FAIL  database reachable")
}
