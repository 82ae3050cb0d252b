// Package addons installs the in-cluster components the workflow depends
// on: the secret synchronization operator and, optionally, the service
// mesh. Charts are pulled from their upstream repositories and driven
// through the Helm SDK in process, without shelling out to the helm binary.
package addons

import (
	"fmt"
	"log"
	"os"
	"time"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	helmdriver "helm.sh/helm/v3/pkg/storage/driver"
)

// HelmClient drives chart installs through the Helm SDK.
type HelmClient struct {
	settings *cli.EnvSettings
}

// NewHelmClient creates a new HelmClient.
func NewHelmClient() *HelmClient {
	return &HelmClient{
		settings: cli.New(),
	}
}

// InstallOrUpgrade installs a chart release, or upgrades it if release
// history already exists. Both paths wait for the release workloads to
// become ready.
func (h *HelmClient) InstallOrUpgrade(kubeconfig []byte, namespace, releaseName, repoURL, chartName, version string, values map[string]interface{}) error {
	actionConfig, err := h.actionConfig(kubeconfig, namespace)
	if err != nil {
		return err
	}

	cp := &action.ChartPathOptions{}
	cp.RepoURL = repoURL
	cp.Version = version

	chartPath, err := cp.LocateChart(chartName, h.settings)
	if err != nil {
		return fmt.Errorf("failed to locate chart %s: %w", chartName, err)
	}

	chart, err := loader.Load(chartPath)
	if err != nil {
		return fmt.Errorf("failed to load chart %s: %w", chartName, err)
	}

	histClient := action.NewHistory(actionConfig)
	histClient.Max = 1
	if _, err := histClient.Run(releaseName); err == nil {
		upgrade := action.NewUpgrade(actionConfig)
		upgrade.Namespace = namespace
		upgrade.Wait = true
		upgrade.Timeout = 5 * time.Minute
		if _, err := upgrade.Run(releaseName, chart, values); err != nil {
			return fmt.Errorf("helm upgrade %s failed: %w", releaseName, err)
		}
		return nil
	}

	install := action.NewInstall(actionConfig)
	install.Namespace = namespace
	install.ReleaseName = releaseName
	install.CreateNamespace = true
	install.Wait = true
	install.Timeout = 5 * time.Minute
	if _, err := install.Run(chart, values); err != nil {
		return fmt.Errorf("helm install %s failed: %w", releaseName, err)
	}
	return nil
}

// Uninstall removes a release. A release that was never installed is not
// an error, so teardown can be re-run.
func (h *HelmClient) Uninstall(kubeconfig []byte, namespace, releaseName string) error {
	actionConfig, err := h.actionConfig(kubeconfig, namespace)
	if err != nil {
		return err
	}

	uninstall := action.NewUninstall(actionConfig)
	uninstall.Timeout = 5 * time.Minute
	if _, err := uninstall.Run(releaseName); err != nil {
		if err == helmdriver.ErrReleaseNotFound {
			return nil
		}
		return fmt.Errorf("helm uninstall %s failed: %w", releaseName, err)
	}
	return nil
}

func (h *HelmClient) actionConfig(kubeconfig []byte, namespace string) (*action.Configuration, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create rest config: %w", err)
	}

	actionConfig := new(action.Configuration)
	clientGetter := &genericRESTClientGetter{
		config:    restConfig,
		namespace: namespace,
	}
	if err := actionConfig.Init(clientGetter, namespace, os.Getenv("HELM_DRIVER"), log.Printf); err != nil {
		return nil, fmt.Errorf("failed to init action config: %w", err)
	}
	return actionConfig, nil
}

// genericRESTClientGetter implements basic RESTClientGetter for Helm.
type genericRESTClientGetter struct {
	config    *rest.Config
	namespace string
}

func (g *genericRESTClientGetter) ToRESTConfig() (*rest.Config, error) {
	return g.config, nil
}

func (g *genericRESTClientGetter) ToDiscoveryClient() (discovery.CachedDiscoveryInterface, error) {
	discoveryClient, err := discovery.NewDiscoveryClientForConfig(g.config)
	if err != nil {
		return nil, err
	}
	return memory.NewMemCacheClient(discoveryClient), nil
}

func (g *genericRESTClientGetter) ToRESTMapper() (meta.RESTMapper, error) {
	discoveryClient, err := g.ToDiscoveryClient()
	if err != nil {
		return nil, err
	}
	return restmapper.NewDeferredDiscoveryRESTMapper(discoveryClient), nil
}

func (g *genericRESTClientGetter) ToRawKubeConfigLoader() clientcmd.ClientConfig {
	return clientcmd.NewDefaultClientConfig(*clientcmdapi.NewConfig(), &clientcmd.ConfigOverrides{})
}
