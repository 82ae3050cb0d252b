package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/msi/armmsi"

	"github.com/stocktrader-ops/tradectl/internal/provisioning"
	"github.com/stocktrader-ops/tradectl/internal/util/naming"
)

// EnsureIdentity creates or updates the user-assigned managed identity the
// trading application runs as.
func (c *Client) EnsureIdentity(ctx context.Context) (provisioning.IdentityRef, error) {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.Identity(c.cfg.Environment)

	resp, err := c.identities.CreateOrUpdate(ctx, rg, name, armmsi.Identity{
		Location: to.Ptr(c.cfg.Region),
	}, nil)
	if err != nil {
		return provisioning.IdentityRef{}, provisioning.ClassifyProviderError("identity/"+name, err)
	}

	ref := provisioning.IdentityRef{}
	if resp.Properties != nil {
		ref.ClientID = deref(resp.Properties.ClientID)
		ref.PrincipalID = deref(resp.Properties.PrincipalID)
	}
	if ref.ClientID == "" || ref.PrincipalID == "" {
		return ref, fmt.Errorf("identity %s returned without client or principal ID", name)
	}
	return ref, nil
}

// EnsureFederatedCredential binds the cluster service account to the
// identity via the cluster's OIDC issuer. A partial state (identity without
// federation) must never count as success, so any error here fails the node.
func (c *Client) EnsureFederatedCredential(ctx context.Context, identity provisioning.IdentityRef, issuerURL, namespace, serviceAccount string) error {
	rg := naming.ResourceGroup(c.cfg.Environment)
	identityName := naming.Identity(c.cfg.Environment)
	fedName := naming.FederatedCredential(c.cfg.Environment)
	subject := fmt.Sprintf("system:serviceaccount:%s:%s", namespace, serviceAccount)

	_, err := c.federations.CreateOrUpdate(ctx, rg, identityName, fedName,
		armmsi.FederatedIdentityCredential{
			Properties: &armmsi.FederatedIdentityCredentialProperties{
				Issuer:    to.Ptr(issuerURL),
				Subject:   to.Ptr(subject),
				Audiences: []*string{to.Ptr("api://AzureADTokenExchange")},
			},
		}, nil)
	if err != nil {
		return provisioning.ClassifyProviderError("federated-credential/"+fedName, err)
	}
	return nil
}

// DeleteIdentity removes the managed identity and, implicitly, its
// federated credentials.
func (c *Client) DeleteIdentity(ctx context.Context) error {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.Identity(c.cfg.Environment)

	if _, err := c.identities.Delete(ctx, rg, name, nil); err != nil {
		return ignoreNotFound("identity/"+name, err)
	}
	return nil
}
