package addons

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type installCall struct {
	namespace string
	release   string
	repoURL   string
	chart     string
	version   string
	values    map[string]interface{}
}

type fakeInstaller struct {
	installs   []installCall
	uninstalls []string
	failOn     string
}

func (f *fakeInstaller) InstallOrUpgrade(_ []byte, namespace, release, repoURL, chart, version string, values map[string]interface{}) error {
	if f.failOn == release {
		return errors.New("chart pull failed")
	}
	f.installs = append(f.installs, installCall{namespace, release, repoURL, chart, version, values})
	return nil
}

func (f *fakeInstaller) Uninstall(_ []byte, _, release string) error {
	f.uninstalls = append(f.uninstalls, release)
	return nil
}

func TestInstallSecretOperator(t *testing.T) {
	t.Parallel()

	fake := &fakeInstaller{}
	m := &Manager{helm: fake, kubeconfig: []byte("kc")}

	require.NoError(t, m.InstallSecretOperator(context.Background()))
	require.Len(t, fake.installs, 1)

	call := fake.installs[0]
	assert.Equal(t, "external-secrets", call.namespace)
	assert.Equal(t, "external-secrets", call.release)
	assert.Equal(t, "https://charts.external-secrets.io", call.repoURL)
	assert.Equal(t, true, call.values["installCRDs"])
}

func TestInstallMesh_BaseBeforeControlPlane(t *testing.T) {
	t.Parallel()

	fake := &fakeInstaller{}
	m := &Manager{helm: fake, kubeconfig: []byte("kc"), meshVersion: "1.24.2"}

	require.NoError(t, m.InstallMesh(context.Background()))
	require.Len(t, fake.installs, 2)
	assert.Equal(t, "istio-base", fake.installs[0].release)
	assert.Equal(t, "istiod", fake.installs[1].release)
	assert.Equal(t, "1.24.2", fake.installs[0].version)
	assert.Equal(t, "1.24.2", fake.installs[1].version)
}

func TestInstallMesh_BaseFailureStops(t *testing.T) {
	t.Parallel()

	fake := &fakeInstaller{failOn: "istio-base"}
	m := &Manager{helm: fake, kubeconfig: []byte("kc"), meshVersion: "1.24.2"}

	err := m.InstallMesh(context.Background())
	require.Error(t, err)
	assert.Empty(t, fake.installs)
}

func TestUninstallMesh_ControlPlaneFirst(t *testing.T) {
	t.Parallel()

	fake := &fakeInstaller{}
	m := &Manager{helm: fake, kubeconfig: []byte("kc")}

	require.NoError(t, m.UninstallMesh(context.Background()))
	assert.Equal(t, []string{"istiod", "istio-base"}, fake.uninstalls)
}

func TestInstall_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeInstaller{}
	m := &Manager{helm: fake, kubeconfig: []byte("kc")}

	assert.Error(t, m.InstallSecretOperator(ctx))
	assert.Error(t, m.InstallMesh(ctx))
	assert.Empty(t, fake.installs)
}
