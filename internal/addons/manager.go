package addons

import (
	"context"
	"fmt"
)

const (
	// External Secrets operator, the vault-to-cluster secret bridge.
	secretOperatorNamespace = "external-secrets"
	secretOperatorRelease   = "external-secrets"
	secretOperatorRepo      = "https://charts.external-secrets.io"
	secretOperatorChart     = "external-secrets"
	secretOperatorVersion   = "0.10.7"

	// Istio service mesh, installed only when the mesh toggle is on.
	meshNamespace = "istio-system"
	meshRepo      = "https://istio-release.storage.googleapis.com/charts"
)

// chartInstaller is the slice of HelmClient the manager needs. Tests swap
// in a recording fake.
type chartInstaller interface {
	InstallOrUpgrade(kubeconfig []byte, namespace, releaseName, repoURL, chartName, version string, values map[string]interface{}) error
	Uninstall(kubeconfig []byte, namespace, releaseName string) error
}

// Manager implements provisioning.AddonInstaller over a Helm client bound
// to one cluster's kubeconfig.
type Manager struct {
	helm        chartInstaller
	kubeconfig  []byte
	meshVersion string
}

// NewManager creates a Manager installing into the cluster the kubeconfig
// points at.
func NewManager(kubeconfig []byte, meshVersion string) *Manager {
	return &Manager{
		helm:        NewHelmClient(),
		kubeconfig:  kubeconfig,
		meshVersion: meshVersion,
	}
}

// InstallSecretOperator installs the External Secrets operator. The release
// is installed with its CRDs; CRD establishment and webhook readiness are
// observed separately by the workflow before any custom resources are
// applied.
func (m *Manager) InstallSecretOperator(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	values := map[string]interface{}{
		"installCRDs": true,
		"webhook": map[string]interface{}{
			"port": 9443,
		},
	}
	if err := m.helm.InstallOrUpgrade(m.kubeconfig, secretOperatorNamespace, secretOperatorRelease,
		secretOperatorRepo, secretOperatorChart, secretOperatorVersion, values); err != nil {
		return fmt.Errorf("failed to install secret operator: %w", err)
	}
	return nil
}

// UninstallSecretOperator removes the External Secrets operator release.
func (m *Manager) UninstallSecretOperator(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.helm.Uninstall(m.kubeconfig, secretOperatorNamespace, secretOperatorRelease)
}

// InstallMesh installs the Istio control plane: the base chart carrying the
// CRDs first, then istiod. Ordering matters; istiod's resources reference
// CRDs the base chart owns.
func (m *Manager) InstallMesh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.helm.InstallOrUpgrade(m.kubeconfig, meshNamespace, "istio-base",
		meshRepo, "base", m.meshVersion, map[string]interface{}{
			"defaultRevision": "default",
		}); err != nil {
		return fmt.Errorf("failed to install mesh base: %w", err)
	}

	if err := m.helm.InstallOrUpgrade(m.kubeconfig, meshNamespace, "istiod",
		meshRepo, "istiod", m.meshVersion, map[string]interface{}{
			"pilot": map[string]interface{}{
				"autoscaleEnabled": false,
			},
		}); err != nil {
		return fmt.Errorf("failed to install mesh control plane: %w", err)
	}
	return nil
}

// UninstallMesh removes the Istio releases, control plane before base so
// the CRDs outlive their last consumers.
func (m *Manager) UninstallMesh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.helm.Uninstall(m.kubeconfig, meshNamespace, "istiod"); err != nil {
		return err
	}
	return m.helm.Uninstall(m.kubeconfig, meshNamespace, "istio-base")
}
