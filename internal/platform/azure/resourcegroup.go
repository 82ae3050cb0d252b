package azure

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"

	"github.com/stocktrader-ops/tradectl/internal/provisioning"
	"github.com/stocktrader-ops/tradectl/internal/util/naming"
)

// EnsureResourceGroup creates or updates the environment's resource group.
func (c *Client) EnsureResourceGroup(ctx context.Context) error {
	name := naming.ResourceGroup(c.cfg.Environment)
	_, err := c.groups.CreateOrUpdate(ctx, name, armresources.ResourceGroup{
		Location: to.Ptr(c.cfg.Region),
		Tags: map[string]*string{
			"environment": to.Ptr(c.cfg.Environment),
			"managed-by":  to.Ptr("tradectl"),
		},
	}, nil)
	if err != nil {
		return provisioning.ClassifyProviderError("resource-group/"+name, err)
	}
	return nil
}

// ResourceGroupExists reports whether the environment's resource group is
// present.
func (c *Client) ResourceGroupExists(ctx context.Context) (bool, error) {
	name := naming.ResourceGroup(c.cfg.Environment)
	resp, err := c.groups.CheckExistence(ctx, name, nil)
	if err != nil {
		return false, provisioning.ClassifyProviderError("resource-group/"+name, err)
	}
	return resp.Success, nil
}

// DeleteResourceGroup removes the resource group and everything left in it.
// Runs last in the teardown order.
func (c *Client) DeleteResourceGroup(ctx context.Context) error {
	name := naming.ResourceGroup(c.cfg.Environment)
	exists, err := c.ResourceGroupExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	poller, err := c.groups.BeginDelete(ctx, name, nil)
	if err != nil {
		return provisioning.ClassifyProviderError("resource-group/"+name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return provisioning.ClassifyProviderError("resource-group/"+name, err)
	}
	return nil
}
