package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/keyvault/armkeyvault"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/stocktrader-ops/tradectl/internal/provisioning"
	"github.com/stocktrader-ops/tradectl/internal/util/naming"
)

// EnsureVault creates or updates the Key Vault. Access is policy based; the
// workload identity's policy is added separately by EnsureVaultAccess once
// the identity exists.
func (c *Client) EnsureVault(ctx context.Context) (provisioning.VaultRef, error) {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.Vault(c.cfg.Environment)

	params := armkeyvault.VaultCreateOrUpdateParameters{
		Location: to.Ptr(c.cfg.Region),
		Properties: &armkeyvault.VaultProperties{
			TenantID: to.Ptr(c.cfg.TenantID),
			SKU: &armkeyvault.SKU{
				Family: to.Ptr(armkeyvault.SKUFamilyA),
				Name:   to.Ptr(armkeyvault.SKUNameStandard),
			},
			AccessPolicies:       []*armkeyvault.AccessPolicyEntry{},
			EnabledForDeployment: to.Ptr(false),
		},
	}

	poller, err := c.vaults.BeginCreateOrUpdate(ctx, rg, name, params, nil)
	if err != nil {
		return provisioning.VaultRef{}, provisioning.ClassifyProviderError("vault/"+name, err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return provisioning.VaultRef{}, provisioning.ClassifyProviderError("vault/"+name, err)
	}

	ref := provisioning.VaultRef{Name: name}
	if resp.Properties != nil {
		ref.URI = deref(resp.Properties.VaultURI)
	}
	if ref.URI == "" {
		ref.URI = fmt.Sprintf("https://%s.vault.azure.net/", name)
	}
	return ref, nil
}

// EnsureVaultAccess adds an access policy granting the workload identity
// read access to secrets. Adding the same policy twice is a no-op on the
// ARM side.
func (c *Client) EnsureVaultAccess(ctx context.Context, identity provisioning.IdentityRef) error {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.Vault(c.cfg.Environment)

	params := armkeyvault.VaultAccessPolicyParameters{
		Properties: &armkeyvault.VaultAccessPolicyProperties{
			AccessPolicies: []*armkeyvault.AccessPolicyEntry{
				{
					TenantID: to.Ptr(c.cfg.TenantID),
					ObjectID: to.Ptr(identity.PrincipalID),
					Permissions: &armkeyvault.Permissions{
						Secrets: []*armkeyvault.SecretPermissions{
							to.Ptr(armkeyvault.SecretPermissionsGet),
							to.Ptr(armkeyvault.SecretPermissionsList),
						},
					},
				},
			},
		},
	}

	_, err := c.vaults.UpdateAccessPolicy(ctx, rg, name, armkeyvault.AccessPolicyUpdateKindAdd, params, nil)
	if err != nil {
		return provisioning.ClassifyProviderError("vault-access/"+name, err)
	}
	return nil
}

// PutSecret writes one secret record to the vault. Writing an existing key
// creates a new version; the old value is never mutated in place.
func (c *Client) PutSecret(ctx context.Context, name, value string) error {
	client, err := c.secretsClient()
	if err != nil {
		return err
	}
	_, err = client.SetSecret(ctx, name, azsecrets.SetSecretParameters{Value: to.Ptr(value)}, nil)
	if err != nil {
		return provisioning.ClassifyProviderError("secret/"+name, err)
	}
	return nil
}

// GetSecret reads the latest version of a secret record. Used by postcheck.
func (c *Client) GetSecret(ctx context.Context, name string) (string, error) {
	client, err := c.secretsClient()
	if err != nil {
		return "", err
	}
	resp, err := client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", provisioning.ClassifyProviderError("secret/"+name, err)
	}
	return deref(resp.Value), nil
}

// DeleteVault removes the Key Vault.
func (c *Client) DeleteVault(ctx context.Context) error {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.Vault(c.cfg.Environment)

	if _, err := c.vaults.Delete(ctx, rg, name, nil); err != nil {
		return ignoreNotFound("vault/"+name, err)
	}
	return nil
}

func (c *Client) secretsClient() (*azsecrets.Client, error) {
	uri := fmt.Sprintf("https://%s.vault.azure.net/", naming.Vault(c.cfg.Environment))
	return c.newSecretsClient(uri)
}
