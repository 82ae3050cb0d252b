package secretbridge

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

// Manifests are built as plain maps and marshaled, instead of templated
// strings, so a malformed structure fails here rather than at apply time.

func serviceAccountManifest(namespace, name, clientID string) ([]byte, error) {
	obj := map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "ServiceAccount",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": namespace,
			"annotations": map[string]interface{}{
				"azure.workload.identity/client-id": clientID,
			},
			"labels": map[string]interface{}{
				"azure.workload.identity/use": "true",
			},
		},
	}
	out, err := yaml.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal service account manifest: %w", err)
	}
	return out, nil
}

func storeManifest(name, vaultURI, tenantID, namespace, serviceAccount string) ([]byte, error) {
	obj := map[string]interface{}{
		"apiVersion": esoGroup + "/" + esoVersion,
		"kind":       "ClusterSecretStore",
		"metadata": map[string]interface{}{
			"name": name,
		},
		"spec": map[string]interface{}{
			"provider": map[string]interface{}{
				"azurekv": map[string]interface{}{
					"authType": "WorkloadIdentity",
					"vaultUrl": vaultURI,
					"tenantId": tenantID,
					"serviceAccountRef": map[string]interface{}{
						"name":      serviceAccount,
						"namespace": namespace,
					},
				},
			},
		},
	}
	out, err := yaml.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal secret store manifest: %w", err)
	}
	return out, nil
}

func externalSecretManifest(namespace, name, storeName string) ([]byte, error) {
	obj := map[string]interface{}{
		"apiVersion": esoGroup + "/" + esoVersion,
		"kind":       "ExternalSecret",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": namespace,
		},
		"spec": map[string]interface{}{
			"refreshInterval": "1h",
			"secretStoreRef": map[string]interface{}{
				"kind": "ClusterSecretStore",
				"name": storeName,
			},
			"target": map[string]interface{}{
				"name":           name,
				"creationPolicy": "Owner",
			},
			"data": []interface{}{
				map[string]interface{}{
					"secretKey": SecretDatabaseConnString,
					"remoteRef": map[string]interface{}{"key": SecretDatabaseConnString},
				},
				map[string]interface{}{
					"secretKey": SecretCachePrimaryKey,
					"remoteRef": map[string]interface{}{"key": SecretCachePrimaryKey},
				},
			},
		},
	}
	out, err := yaml.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal external secret manifest: %w", err)
	}
	return out, nil
}
