package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice/v5"

	"github.com/stocktrader-ops/tradectl/internal/provisioning"
	"github.com/stocktrader-ops/tradectl/internal/util/naming"
)

// EnsureCluster creates or updates the managed Kubernetes cluster with the
// OIDC issuer and workload identity enabled, since the secret bridge
// depends on both.
func (c *Client) EnsureCluster(ctx context.Context, network provisioning.NetworkRef) (provisioning.ClusterRef, error) {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.Cluster(c.cfg.Environment)

	cluster := armcontainerservice.ManagedCluster{
		Location: to.Ptr(c.cfg.Region),
		Identity: &armcontainerservice.ManagedClusterIdentity{
			Type: to.Ptr(armcontainerservice.ResourceIdentityTypeSystemAssigned),
		},
		Properties: &armcontainerservice.ManagedClusterProperties{
			DNSPrefix:         to.Ptr(c.cfg.Environment),
			KubernetesVersion: optional(c.cfg.Cluster.KubernetesVersion),
			EnableRBAC:        to.Ptr(true),
			OidcIssuerProfile: &armcontainerservice.ManagedClusterOIDCIssuerProfile{
				Enabled: to.Ptr(true),
			},
			SecurityProfile: &armcontainerservice.ManagedClusterSecurityProfile{
				WorkloadIdentity: &armcontainerservice.ManagedClusterSecurityProfileWorkloadIdentity{
					Enabled: to.Ptr(true),
				},
			},
			AgentPoolProfiles: []*armcontainerservice.ManagedClusterAgentPoolProfile{
				{
					Name:         to.Ptr("system"),
					Mode:         to.Ptr(armcontainerservice.AgentPoolModeSystem),
					Count:        to.Ptr(int32(c.cfg.Cluster.NodeCount)),
					VMSize:       to.Ptr(c.cfg.Cluster.NodeSize),
					OSType:       to.Ptr(armcontainerservice.OSTypeLinux),
					VnetSubnetID: optional(network.ClusterSubnetID),
				},
			},
			NetworkProfile: &armcontainerservice.NetworkProfile{
				NetworkPlugin: to.Ptr(armcontainerservice.NetworkPluginAzure),
			},
		},
	}

	poller, err := c.clusters.BeginCreateOrUpdate(ctx, rg, name, cluster, nil)
	if err != nil {
		return provisioning.ClusterRef{}, provisioning.ClassifyProviderError("cluster/"+name, err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return provisioning.ClusterRef{}, provisioning.ClassifyProviderError("cluster/"+name, err)
	}

	ref := provisioning.ClusterRef{Name: name}
	if resp.Properties != nil {
		ref.FQDN = deref(resp.Properties.Fqdn)
		if resp.Properties.OidcIssuerProfile != nil {
			ref.OIDCIssuerURL = deref(resp.Properties.OidcIssuerProfile.IssuerURL)
		}
	}
	if ref.OIDCIssuerURL == "" {
		return ref, fmt.Errorf("cluster %s has no OIDC issuer URL; workload identity cannot be federated", name)
	}
	return ref, nil
}

// ClusterCredentials fetches an admin kubeconfig for the cluster.
func (c *Client) ClusterCredentials(ctx context.Context) ([]byte, error) {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.Cluster(c.cfg.Environment)

	resp, err := c.clusters.ListClusterAdminCredentials(ctx, rg, name, nil)
	if err != nil {
		return nil, provisioning.ClassifyProviderError("cluster/"+name, err)
	}
	if len(resp.Kubeconfigs) == 0 {
		return nil, fmt.Errorf("cluster %s returned no kubeconfig", name)
	}
	return resp.Kubeconfigs[0].Value, nil
}

// DeleteCluster removes the managed cluster.
func (c *Client) DeleteCluster(ctx context.Context) error {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.Cluster(c.cfg.Environment)

	poller, err := c.clusters.BeginDelete(ctx, rg, name, nil)
	if err != nil {
		return ignoreNotFound("cluster/"+name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return ignoreNotFound("cluster/"+name, err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return to.Ptr(s)
}
