// Package azure implements the CloudProvider contract against the Azure
// Resource Manager control plane.
//
// Every Ensure method is an idempotent upsert: ARM's CreateOrUpdate
// semantics converge the resource toward the declared state whether or not
// it already exists. Pollers returned by Begin* calls are driven to
// completion here, but "provisioned" is still not "ready": functional
// readiness (a database accepting connections, a webhook answering) is the
// orchestrator's job, not this package's.
package azure

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v4"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/keyvault/armkeyvault"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/msi/armmsi"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/postgresql/armpostgresqlflexibleservers/v4"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/redis/armredis/v3"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/stocktrader-ops/tradectl/internal/config"
)

// Client talks to the Azure control plane for one deployment environment.
// It implements provisioning.CloudProvider.
type Client struct {
	cfg *config.Config

	groups      *armresources.ResourceGroupsClient
	vnets       *armnetwork.VirtualNetworksClient
	clusters    *armcontainerservice.ManagedClustersClient
	servers     *armpostgresqlflexibleservers.ServersClient
	databases   *armpostgresqlflexibleservers.DatabasesClient
	firewalls   *armpostgresqlflexibleservers.FirewallRulesClient
	redis       *armredis.Client
	vaults      *armkeyvault.VaultsClient
	identities  *armmsi.UserAssignedIdentitiesClient
	federations *armmsi.FederatedIdentityCredentialsClient
	plans       *armappservice.PlansClient
	sites       *armappservice.WebAppsClient

	// newSecretsClient is swappable for tests.
	newSecretsClient func(vaultURL string) (*azsecrets.Client, error)
}

// NewClient builds the ARM clients using the default credential chain
// (environment, workload identity, managed identity, CLI).
func NewClient(cfg *config.Config) (*Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire Azure credential: %w", err)
	}
	return newClientWithCredential(cfg, cred)
}

func newClientWithCredential(cfg *config.Config, cred azcore.TokenCredential) (*Client, error) {
	sub := cfg.SubscriptionID

	groups, err := armresources.NewResourceGroupsClient(sub, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("resource groups client: %w", err)
	}
	vnets, err := armnetwork.NewVirtualNetworksClient(sub, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("virtual networks client: %w", err)
	}
	clusters, err := armcontainerservice.NewManagedClustersClient(sub, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("managed clusters client: %w", err)
	}
	servers, err := armpostgresqlflexibleservers.NewServersClient(sub, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("postgres servers client: %w", err)
	}
	databases, err := armpostgresqlflexibleservers.NewDatabasesClient(sub, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("postgres databases client: %w", err)
	}
	firewalls, err := armpostgresqlflexibleservers.NewFirewallRulesClient(sub, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("postgres firewall client: %w", err)
	}
	redisClient, err := armredis.NewClient(sub, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	vaults, err := armkeyvault.NewVaultsClient(sub, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("vaults client: %w", err)
	}
	identities, err := armmsi.NewUserAssignedIdentitiesClient(sub, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("identities client: %w", err)
	}
	federations, err := armmsi.NewFederatedIdentityCredentialsClient(sub, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("federated credentials client: %w", err)
	}
	plans, err := armappservice.NewPlansClient(sub, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("app service plans client: %w", err)
	}
	sites, err := armappservice.NewWebAppsClient(sub, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("web apps client: %w", err)
	}

	return &Client{
		cfg:         cfg,
		groups:      groups,
		vnets:       vnets,
		clusters:    clusters,
		servers:     servers,
		databases:   databases,
		firewalls:   firewalls,
		redis:       redisClient,
		vaults:      vaults,
		identities:  identities,
		federations: federations,
		plans:       plans,
		sites:       sites,
		newSecretsClient: func(vaultURL string) (*azsecrets.Client, error) {
			return azsecrets.NewClient(vaultURL, cred, nil)
		},
	}, nil
}
