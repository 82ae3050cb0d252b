package azure

import (
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/stocktrader-ops/tradectl/internal/provisioning"
)

// ignoreNotFound classifies err but treats 404 as success. Teardown paths
// use it so a re-run of destroy converges instead of failing on already
// deleted resources.
func ignoreNotFound(resource string, err error) error {
	if err == nil {
		return nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == 404 {
		return nil
	}
	return provisioning.ClassifyProviderError(resource, err)
}
