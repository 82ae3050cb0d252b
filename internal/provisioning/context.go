package provisioning

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/stocktrader-ops/tradectl/internal/config"
)

// Context wraps all dependencies and state needed by the workflow nodes.
// Cloud, DB, and HTTP are available from the start; cluster-side clients
// appear once the kubeconfig node has run and are installed through
// SetClusterClients.
type Context struct {
	context.Context
	Config   *config.Config
	Timeouts *config.Timeouts
	State    *State
	Observer Observer
	Cloud    CloudProvider
	DB       DatabaseOps
	HTTP     *http.Client

	// NewClusterClients constructs the cluster-side clients from a
	// kubeconfig. Injected so tests can substitute fakes.
	NewClusterClients func(kubeconfig []byte) (ClusterOps, AddonInstaller, error)

	mu      sync.RWMutex
	cluster ClusterOps
	addons  AddonInstaller
}

// NewContext creates a workflow context with a fresh run state.
func NewContext(ctx context.Context, cfg *config.Config, cloud CloudProvider, db DatabaseOps) *Context {
	return &Context{
		Context:  ctx,
		Config:   cfg,
		Timeouts: config.LoadTimeouts(),
		State:    NewState(uuid.NewString()),
		Observer: NewConsoleObserver(),
		Cloud:    cloud,
		DB:       db,
		HTTP:     http.DefaultClient,
	}
}

// SetClusterClients installs the cluster-side clients. Called exactly once,
// by the kubeconfig node.
func (c *Context) SetClusterClients(cluster ClusterOps, addons AddonInstaller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cluster = cluster
	c.addons = addons
}

// Cluster returns the cluster client, or nil before the kubeconfig node ran.
func (c *Context) Cluster() ClusterOps {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cluster
}

// Addons returns the addon installer, or nil before the kubeconfig node ran.
func (c *Context) Addons() AddonInstaller {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.addons
}
