package azure

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"

	"github.com/stocktrader-ops/tradectl/internal/provisioning"
	"github.com/stocktrader-ops/tradectl/internal/util/naming"
)

const (
	clusterSubnetName  = "cluster"
	databaseSubnetName = "database"
)

// EnsureNetwork creates or updates the virtual network with the cluster and
// database subnets.
func (c *Client) EnsureNetwork(ctx context.Context) (provisioning.NetworkRef, error) {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.VirtualNetwork(c.cfg.Environment)

	vnet := armnetwork.VirtualNetwork{
		Location: to.Ptr(c.cfg.Region),
		Properties: &armnetwork.VirtualNetworkPropertiesFormat{
			AddressSpace: &armnetwork.AddressSpace{
				AddressPrefixes: []*string{to.Ptr(c.cfg.Network.VNetCIDR)},
			},
			Subnets: []*armnetwork.Subnet{
				{
					Name: to.Ptr(clusterSubnetName),
					Properties: &armnetwork.SubnetPropertiesFormat{
						AddressPrefix: to.Ptr(c.cfg.Network.ClusterSubnet),
					},
				},
				{
					Name: to.Ptr(databaseSubnetName),
					Properties: &armnetwork.SubnetPropertiesFormat{
						AddressPrefix: to.Ptr(c.cfg.Network.DatabaseSubnet),
					},
				},
			},
		},
	}

	poller, err := c.vnets.BeginCreateOrUpdate(ctx, rg, name, vnet, nil)
	if err != nil {
		return provisioning.NetworkRef{}, provisioning.ClassifyProviderError("network/"+name, err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return provisioning.NetworkRef{}, provisioning.ClassifyProviderError("network/"+name, err)
	}

	ref := provisioning.NetworkRef{VNetID: deref(resp.ID)}
	for _, subnet := range resp.Properties.Subnets {
		switch deref(subnet.Name) {
		case clusterSubnetName:
			ref.ClusterSubnetID = deref(subnet.ID)
		case databaseSubnetName:
			ref.DatabaseSubnetID = deref(subnet.ID)
		}
	}
	return ref, nil
}

// DeleteNetwork removes the virtual network.
func (c *Client) DeleteNetwork(ctx context.Context) error {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.VirtualNetwork(c.cfg.Environment)

	poller, err := c.vnets.BeginDelete(ctx, rg, name, nil)
	if err != nil {
		return ignoreNotFound("network/"+name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return ignoreNotFound("network/"+name, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
