// Package config defines the deployment configuration: the flat set of named
// parameters a run consumes, loaded from YAML and validated before any
// external call is made.
package config

type Config struct {
	// Environment names the deployment and seeds every resource name.
	Environment string `mapstructure:"environment" yaml:"environment"`

	// SubscriptionID is the Azure subscription (UUID).
	SubscriptionID string `mapstructure:"subscription_id" yaml:"subscription_id"`

	// TenantID is the Azure Active Directory tenant (UUID). Required for
	// the vault and the federated trust binding.
	TenantID string `mapstructure:"tenant_id" yaml:"tenant_id"`

	// Region is the Azure region for all resources.
	Region string `mapstructure:"region" yaml:"region"`

	// Namespace is the cluster namespace the trading application deploys into.
	Namespace string `mapstructure:"namespace" yaml:"namespace"`

	// ServiceAccount is the cluster service account bound to the workload
	// identity via federated trust.
	ServiceAccount string `mapstructure:"service_account" yaml:"service_account"`

	// Parallelism bounds concurrent execution of independent graph nodes.
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism"`

	// ContinueOnFailure lets independent subtrees keep executing after a
	// node fails. The default halts the run on the first failure, leaving
	// already-provisioned resources in place.
	ContinueOnFailure bool `mapstructure:"continue_on_failure" yaml:"continue_on_failure"`

	Network  NetworkConfig  `mapstructure:"network" yaml:"network"`
	Cluster  ClusterConfig  `mapstructure:"cluster" yaml:"cluster"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Mesh     MeshConfig     `mapstructure:"mesh" yaml:"mesh"`
}

type NetworkConfig struct {
	VNetCIDR      string `mapstructure:"vnet_cidr" yaml:"vnet_cidr"`
	ClusterSubnet string `mapstructure:"cluster_subnet_cidr" yaml:"cluster_subnet_cidr"`
	DatabaseSubnet string `mapstructure:"database_subnet_cidr" yaml:"database_subnet_cidr"`
}

type ClusterConfig struct {
	NodeCount         int    `mapstructure:"node_count" yaml:"node_count"`
	NodeSize          string `mapstructure:"node_size" yaml:"node_size"`
	KubernetesVersion string `mapstructure:"kubernetes_version" yaml:"kubernetes_version"`
}

type DatabaseConfig struct {
	Name          string `mapstructure:"name" yaml:"name"`
	AdminUser     string `mapstructure:"admin_user" yaml:"admin_user"`
	AdminPassword string `mapstructure:"admin_password" yaml:"admin_password"`
	SKU           string `mapstructure:"sku" yaml:"sku"`
	StorageGB     int    `mapstructure:"storage_gb" yaml:"storage_gb"`
}

type CacheConfig struct {
	SKU      string `mapstructure:"sku" yaml:"sku"`
	Capacity int    `mapstructure:"capacity" yaml:"capacity"`
}

// MeshConfig carries the single feature toggle: when disabled, every
// mesh-tagged node in the graph is skipped without altering the rest.
type MeshConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Version string `mapstructure:"version" yaml:"version"`
}

// ApplyDefaults fills optional fields that were left empty.
func (c *Config) ApplyDefaults() {
	if c.Namespace == "" {
		c.Namespace = "stock-trader"
	}
	if c.ServiceAccount == "" {
		c.ServiceAccount = "stock-trader"
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 4
	}
	if c.Network.VNetCIDR == "" {
		c.Network.VNetCIDR = "10.10.0.0/16"
	}
	if c.Network.ClusterSubnet == "" {
		c.Network.ClusterSubnet = "10.10.0.0/22"
	}
	if c.Network.DatabaseSubnet == "" {
		c.Network.DatabaseSubnet = "10.10.4.0/24"
	}
	if c.Cluster.NodeCount == 0 {
		c.Cluster.NodeCount = 3
	}
	if c.Cluster.NodeSize == "" {
		c.Cluster.NodeSize = "Standard_D2s_v3"
	}
	if c.Database.Name == "" {
		c.Database.Name = "traderdb"
	}
	if c.Database.AdminUser == "" {
		c.Database.AdminUser = "trader"
	}
	if c.Database.SKU == "" {
		c.Database.SKU = "Standard_B1ms"
	}
	if c.Database.StorageGB == 0 {
		c.Database.StorageGB = 32
	}
	if c.Cache.SKU == "" {
		c.Cache.SKU = "Basic"
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = 1
	}
	if c.Mesh.Version == "" {
		c.Mesh.Version = "1.24.2"
	}
}
