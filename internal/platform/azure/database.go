package azure

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/postgresql/armpostgresqlflexibleservers/v4"

	"github.com/stocktrader-ops/tradectl/internal/provisioning"
	"github.com/stocktrader-ops/tradectl/internal/util/naming"
)

// EnsureDatabase creates or updates the PostgreSQL flexible server, the
// application database, and a firewall rule admitting Azure-internal
// traffic. The returned reference carries only the FQDN; whether the server
// actually accepts connections is a separate readiness question.
func (c *Client) EnsureDatabase(ctx context.Context) (provisioning.DatabaseRef, error) {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.Database(c.cfg.Environment)

	server := armpostgresqlflexibleservers.Server{
		Location: to.Ptr(c.cfg.Region),
		SKU: &armpostgresqlflexibleservers.SKU{
			Name: to.Ptr(c.cfg.Database.SKU),
			Tier: to.Ptr(armpostgresqlflexibleservers.SKUTierBurstable),
		},
		Properties: &armpostgresqlflexibleservers.ServerProperties{
			AdministratorLogin:         to.Ptr(c.cfg.Database.AdminUser),
			AdministratorLoginPassword: to.Ptr(c.cfg.Database.AdminPassword),
			Version:                    to.Ptr(armpostgresqlflexibleservers.ServerVersionSixteen),
			Storage: &armpostgresqlflexibleservers.Storage{
				StorageSizeGB: to.Ptr(int32(c.cfg.Database.StorageGB)),
			},
			// CreateModeUpdate fails for a fresh server; Default handles
			// both create and converge.
			CreateMode: to.Ptr(armpostgresqlflexibleservers.CreateModeDefault),
		},
	}

	poller, err := c.servers.BeginCreate(ctx, rg, name, server, nil)
	if err != nil {
		return provisioning.DatabaseRef{}, provisioning.ClassifyProviderError("database/"+name, err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return provisioning.DatabaseRef{}, provisioning.ClassifyProviderError("database/"+name, err)
	}

	dbPoller, err := c.databases.BeginCreate(ctx, rg, name, c.cfg.Database.Name,
		armpostgresqlflexibleservers.Database{}, nil)
	if err != nil {
		return provisioning.DatabaseRef{}, provisioning.ClassifyProviderError("database/"+c.cfg.Database.Name, err)
	}
	if _, err := dbPoller.PollUntilDone(ctx, nil); err != nil {
		return provisioning.DatabaseRef{}, provisioning.ClassifyProviderError("database/"+c.cfg.Database.Name, err)
	}

	// 0.0.0.0 is the ARM convention for "Azure services only", not the
	// public internet.
	fwPoller, err := c.firewalls.BeginCreateOrUpdate(ctx, rg, name, "allow-azure-services",
		armpostgresqlflexibleservers.FirewallRule{
			Properties: &armpostgresqlflexibleservers.FirewallRuleProperties{
				StartIPAddress: to.Ptr("0.0.0.0"),
				EndIPAddress:   to.Ptr("0.0.0.0"),
			},
		}, nil)
	if err != nil {
		return provisioning.DatabaseRef{}, provisioning.ClassifyProviderError("database-firewall/"+name, err)
	}
	if _, err := fwPoller.PollUntilDone(ctx, nil); err != nil {
		return provisioning.DatabaseRef{}, provisioning.ClassifyProviderError("database-firewall/"+name, err)
	}

	ref := provisioning.DatabaseRef{}
	if resp.Properties != nil {
		ref.FQDN = deref(resp.Properties.FullyQualifiedDomainName)
	}
	return ref, nil
}

// DeleteDatabase removes the PostgreSQL server and its databases.
func (c *Client) DeleteDatabase(ctx context.Context) error {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.Database(c.cfg.Environment)

	poller, err := c.servers.BeginDelete(ctx, rg, name, nil)
	if err != nil {
		return ignoreNotFound("database/"+name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return ignoreNotFound("database/"+name, err)
	}
	return nil
}
