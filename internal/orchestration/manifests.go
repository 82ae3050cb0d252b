package orchestration

import (
	"bytes"
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/stocktrader-ops/tradectl/internal/config"
	"github.com/stocktrader-ops/tradectl/internal/secretbridge"
)

const appImage = "ghcr.io/stocktrader-ops/trader:1.2.0"

// appManifests renders the trading application's deployment and service.
// Credentials come exclusively from the synced secret; nothing sensitive is
// inlined into the manifest.
func appManifests(cfg *config.Config, quoteEndpoint string) ([]byte, error) {
	labels := map[string]interface{}{
		"app":                         AppDeploymentName,
		"azure.workload.identity/use": "true",
	}

	deployment := map[string]interface{}{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata": map[string]interface{}{
			"name":      AppDeploymentName,
			"namespace": cfg.Namespace,
			"labels":    map[string]interface{}{"app": AppDeploymentName},
		},
		"spec": map[string]interface{}{
			"replicas": 2,
			"selector": map[string]interface{}{
				"matchLabels": map[string]interface{}{"app": AppDeploymentName},
			},
			"template": map[string]interface{}{
				"metadata": map[string]interface{}{"labels": labels},
				"spec": map[string]interface{}{
					"serviceAccountName": cfg.ServiceAccount,
					"containers": []interface{}{
						map[string]interface{}{
							"name":  AppDeploymentName,
							"image": appImage,
							"ports": []interface{}{
								map[string]interface{}{"containerPort": 8080},
							},
							"env": []interface{}{
								secretEnv("DATABASE_URL", secretbridge.SecretDatabaseConnString),
								secretEnv("REDIS_PRIMARY_KEY", secretbridge.SecretCachePrimaryKey),
								map[string]interface{}{
									"name":  "STOCK_QUOTE_URL",
									"value": quoteEndpoint + "/api/stock_quote",
								},
							},
							"readinessProbe": map[string]interface{}{
								"httpGet": map[string]interface{}{
									"path": "/health",
									"port": 8080,
								},
								"initialDelaySeconds": 10,
								"periodSeconds":       10,
							},
						},
					},
				},
			},
		},
	}

	service := map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Service",
		"metadata": map[string]interface{}{
			"name":      AppDeploymentName,
			"namespace": cfg.Namespace,
		},
		"spec": map[string]interface{}{
			"type":     "LoadBalancer",
			"selector": map[string]interface{}{"app": AppDeploymentName},
			"ports": []interface{}{
				map[string]interface{}{
					"port":       80,
					"targetPort": 8080,
				},
			},
		},
	}

	var buf bytes.Buffer
	for _, obj := range []map[string]interface{}{deployment, service} {
		out, err := yaml.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s manifest: %w", obj["kind"], err)
		}
		buf.Write(out)
		buf.WriteString("---\n")
	}
	return buf.Bytes(), nil
}

func secretEnv(envName, key string) map[string]interface{} {
	return map[string]interface{}{
		"name": envName,
		"valueFrom": map[string]interface{}{
			"secretKeyRef": map[string]interface{}{
				"name": secretbridge.SyncedSecretName,
				"key":  key,
			},
		},
	}
}
