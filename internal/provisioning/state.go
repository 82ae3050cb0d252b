package provisioning

import "sync"

// NetworkRef identifies the provisioned virtual network.
type NetworkRef struct {
	VNetID           string
	ClusterSubnetID  string
	DatabaseSubnetID string
}

// ClusterRef identifies the provisioned managed cluster.
type ClusterRef struct {
	Name          string
	FQDN          string
	OIDCIssuerURL string
}

// DatabaseRef identifies the provisioned database server.
type DatabaseRef struct {
	FQDN string
}

// CacheRef identifies the provisioned cache and its access key.
type CacheRef struct {
	Hostname   string
	Port       int
	PrimaryKey string
}

// VaultRef identifies the provisioned secret store.
type VaultRef struct {
	Name string
	URI  string
}

// IdentityRef identifies the provisioned workload identity.
type IdentityRef struct {
	ClientID    string
	PrincipalID string
}

// FunctionRef identifies the provisioned serverless function.
type FunctionRef struct {
	Endpoint string
}

// State holds the external resource references produced during a run.
// Each reference is produced exactly once by its creating node and read
// immutably by dependents; the mutex exists because independent nodes may
// produce their references concurrently.
type State struct {
	mu sync.RWMutex

	runID      string
	network    NetworkRef
	cluster    ClusterRef
	kubeconfig []byte
	database   DatabaseRef
	cache      CacheRef
	vault      VaultRef
	identity   IdentityRef
	function   FunctionRef
	appAddress string
}

// NewState creates an empty run state.
func NewState(runID string) *State {
	return &State{runID: runID}
}

func (s *State) RunID() string { return s.runID }

func (s *State) SetNetwork(ref NetworkRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.network = ref
}

func (s *State) Network() NetworkRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.network
}

func (s *State) SetCluster(ref ClusterRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cluster = ref
}

func (s *State) Cluster() ClusterRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cluster
}

func (s *State) SetKubeconfig(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kubeconfig = data
}

func (s *State) Kubeconfig() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kubeconfig
}

func (s *State) SetDatabase(ref DatabaseRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.database = ref
}

func (s *State) Database() DatabaseRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.database
}

func (s *State) SetCache(ref CacheRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = ref
}

func (s *State) Cache() CacheRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache
}

func (s *State) SetVault(ref VaultRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vault = ref
}

func (s *State) Vault() VaultRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vault
}

func (s *State) SetIdentity(ref IdentityRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = ref
}

func (s *State) Identity() IdentityRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *State) SetFunction(ref FunctionRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.function = ref
}

func (s *State) Function() FunctionRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.function
}

func (s *State) SetAppAddress(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appAddress = addr
}

func (s *State) AppAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appAddress
}

// DatabaseConnString assembles the application connection string from the
// database reference and configuration. Empty until the database node ran.
func (s *State) DatabaseConnString(user, password, dbname string) string {
	ref := s.Database()
	if ref.FQDN == "" {
		return ""
	}
	return "postgres://" + user + ":" + password + "@" + ref.FQDN + ":5432/" + dbname + "?sslmode=require"
}
