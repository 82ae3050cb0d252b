package k8s

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// The methods in this file are single-shot observations. They report the
// current state and never block; the caller decides how long and how often
// to poll.

// CRDEstablished reports whether a CustomResourceDefinition exists and has
// the Established condition set.
func (c *Client) CRDEstablished(ctx context.Context, name string) (bool, error) {
	crd, err := c.apiext.ApiextensionsV1().CustomResourceDefinitions().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get CRD %s: %w", name, err)
	}
	for _, cond := range crd.Status.Conditions {
		if cond.Type == apiextensionsv1.Established && cond.Status == apiextensionsv1.ConditionTrue {
			return true, nil
		}
	}
	return false, nil
}

// WebhookEndpointsReady reports whether the service backing an admission
// webhook has at least one ready endpoint address. Applying CRs before the
// webhook can answer gets them rejected, so this gates manifest application.
func (c *Client) WebhookEndpointsReady(ctx context.Context, namespace, service string) (bool, error) {
	eps, err := c.clientset.CoreV1().Endpoints(namespace).Get(ctx, service, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get endpoints %s/%s: %w", namespace, service, err)
	}
	for _, subset := range eps.Subsets {
		if len(subset.Addresses) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// DeploymentReady reports whether a deployment has its full replica count
// available at the current generation.
func (c *Client) DeploymentReady(ctx context.Context, namespace, name string) (bool, error) {
	dep, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get deployment %s/%s: %w", namespace, name, err)
	}
	if dep.Status.ObservedGeneration < dep.Generation {
		return false, nil
	}
	want := int32(1)
	if dep.Spec.Replicas != nil {
		want = *dep.Spec.Replicas
	}
	return dep.Status.AvailableReplicas >= want, nil
}

// LoadBalancerAddress returns the external address of a LoadBalancer
// service, or empty while the cloud provider has not assigned one yet.
func (c *Client) LoadBalancerAddress(ctx context.Context, namespace, name string) (string, error) {
	svc, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get service %s/%s: %w", namespace, name, err)
	}
	for _, ing := range svc.Status.LoadBalancer.Ingress {
		if ing.IP != "" {
			return ing.IP, nil
		}
		if ing.Hostname != "" {
			return ing.Hostname, nil
		}
	}
	return "", nil
}

// ResourceCondition reports whether a custom resource has a status condition
// of the given type with status "True". Used for ClusterSecretStore Ready
// and ExternalSecret Ready checks.
func (c *Client) ResourceCondition(ctx context.Context, group, version, resource, namespace, name, condition string) (bool, error) {
	gvr := schema.GroupVersionResource{Group: group, Version: version, Resource: resource}

	ri := c.dynamic.Resource(gvr)
	var obj map[string]interface{}
	if namespace != "" {
		got, err := ri.Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				return false, nil
			}
			return false, fmt.Errorf("failed to get %s %s/%s: %w", resource, namespace, name, err)
		}
		obj = got.Object
	} else {
		got, err := ri.Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				return false, nil
			}
			return false, fmt.Errorf("failed to get %s %s: %w", resource, name, err)
		}
		obj = got.Object
	}

	status, ok := obj["status"].(map[string]interface{})
	if !ok {
		return false, nil
	}
	conds, ok := status["conditions"].([]interface{})
	if !ok {
		return false, nil
	}
	for _, raw := range conds {
		cond, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if cond["type"] == condition && cond["status"] == "True" {
			return true, nil
		}
	}
	return false, nil
}
