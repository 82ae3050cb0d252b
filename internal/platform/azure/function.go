package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v4"

	"github.com/stocktrader-ops/tradectl/internal/provisioning"
	"github.com/stocktrader-ops/tradectl/internal/util/naming"
)

// EnsureFunctionApp creates or updates the consumption plan and the
// serverless function app serving stock quotes. The app is created with
// HTTPS only; code deployment happens out of band and the readiness poll
// tolerates a cold endpoint.
func (c *Client) EnsureFunctionApp(ctx context.Context) (provisioning.FunctionRef, error) {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.FunctionApp(c.cfg.Environment)
	planName := name + "-plan"

	planPoller, err := c.plans.BeginCreateOrUpdate(ctx, rg, planName, armappservice.Plan{
		Location: to.Ptr(c.cfg.Region),
		Kind:     to.Ptr("functionapp"),
		SKU: &armappservice.SKUDescription{
			Name: to.Ptr("Y1"),
			Tier: to.Ptr("Dynamic"),
		},
		Properties: &armappservice.PlanProperties{
			Reserved: to.Ptr(true), // linux
		},
	}, nil)
	if err != nil {
		return provisioning.FunctionRef{}, provisioning.ClassifyProviderError("function-plan/"+planName, err)
	}
	planResp, err := planPoller.PollUntilDone(ctx, nil)
	if err != nil {
		return provisioning.FunctionRef{}, provisioning.ClassifyProviderError("function-plan/"+planName, err)
	}

	sitePoller, err := c.sites.BeginCreateOrUpdate(ctx, rg, name, armappservice.Site{
		Location: to.Ptr(c.cfg.Region),
		Kind:     to.Ptr("functionapp,linux"),
		Properties: &armappservice.SiteProperties{
			ServerFarmID: planResp.ID,
			HTTPSOnly:    to.Ptr(true),
			SiteConfig: &armappservice.SiteConfig{
				LinuxFxVersion: to.Ptr("Python|3.11"),
				AppSettings: []*armappservice.NameValuePair{
					{Name: to.Ptr("FUNCTIONS_EXTENSION_VERSION"), Value: to.Ptr("~4")},
					{Name: to.Ptr("FUNCTIONS_WORKER_RUNTIME"), Value: to.Ptr("python")},
				},
			},
		},
	}, nil)
	if err != nil {
		return provisioning.FunctionRef{}, provisioning.ClassifyProviderError("function/"+name, err)
	}
	siteResp, err := sitePoller.PollUntilDone(ctx, nil)
	if err != nil {
		return provisioning.FunctionRef{}, provisioning.ClassifyProviderError("function/"+name, err)
	}

	host := ""
	if siteResp.Properties != nil {
		host = deref(siteResp.Properties.DefaultHostName)
	}
	if host == "" {
		return provisioning.FunctionRef{}, fmt.Errorf("function app %s has no default hostname", name)
	}
	return provisioning.FunctionRef{Endpoint: "https://" + host}, nil
}

// DeleteFunctionApp removes the function app and its plan.
func (c *Client) DeleteFunctionApp(ctx context.Context) error {
	rg := naming.ResourceGroup(c.cfg.Environment)
	name := naming.FunctionApp(c.cfg.Environment)
	planName := name + "-plan"

	if _, err := c.sites.Delete(ctx, rg, name, nil); err != nil {
		if err := ignoreNotFound("function/"+name, err); err != nil {
			return err
		}
	}
	if _, err := c.plans.Delete(ctx, rg, planName, nil); err != nil {
		return ignoreNotFound("function-plan/"+planName, err)
	}
	return nil
}
