package azure

import (
	"context"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/redis/armredis/v3"

	"github.com/stocktrader-ops/tradectl/internal/provisioning"
	"github.com/stocktrader-ops/tradectl/internal/util/naming"
)

// EnsureCache creates or updates the managed Redis cache and fetches its
// primary access key.
func (c *Client) EnsureCache(ctx context.Context) (provisioning.CacheRef, error) {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.Cache(c.cfg.Environment)

	skuName, family := cacheSKU(c.cfg.Cache.SKU)
	params := armredis.CreateParameters{
		Location: to.Ptr(c.cfg.Region),
		Properties: &armredis.CreateProperties{
			SKU: &armredis.SKU{
				Name:     to.Ptr(skuName),
				Family:   to.Ptr(family),
				Capacity: to.Ptr(int32(c.cfg.Cache.Capacity)),
			},
			MinimumTLSVersion: to.Ptr(armredis.TLSVersionOne2),
		},
	}

	poller, err := c.redis.BeginCreate(ctx, rg, name, params, nil)
	if err != nil {
		return provisioning.CacheRef{}, provisioning.ClassifyProviderError("cache/"+name, err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return provisioning.CacheRef{}, provisioning.ClassifyProviderError("cache/"+name, err)
	}

	keys, err := c.redis.ListKeys(ctx, rg, name, nil)
	if err != nil {
		return provisioning.CacheRef{}, provisioning.ClassifyProviderError("cache/"+name, err)
	}

	ref := provisioning.CacheRef{PrimaryKey: deref(keys.PrimaryKey)}
	if resp.Properties != nil {
		ref.Hostname = deref(resp.Properties.HostName)
		if resp.Properties.SSLPort != nil {
			ref.Port = int(*resp.Properties.SSLPort)
		}
	}
	return ref, nil
}

// DeleteCache removes the Redis cache.
func (c *Client) DeleteCache(ctx context.Context) error {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.Cache(c.cfg.Environment)

	poller, err := c.redis.BeginDelete(ctx, rg, name, nil)
	if err != nil {
		return ignoreNotFound("cache/"+name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return ignoreNotFound("cache/"+name, err)
	}
	return nil
}

func cacheSKU(sku string) (armredis.SKUName, armredis.SKUFamily) {
	switch strings.ToLower(sku) {
	case "premium":
		return armredis.SKUNamePremium, armredis.SKUFamilyP
	case "standard":
		return armredis.SKUNameStandard, armredis.SKUFamilyC
	default:
		return armredis.SKUNameBasic, armredis.SKUFamilyC
	}
}
