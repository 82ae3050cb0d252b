package k8s

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/yaml"
)

// Apply upserts every document in a multi-document YAML manifest. Objects
// that already exist are updated with the incoming spec, carrying over the
// live resourceVersion so the update does not conflict.
func (c *Client) Apply(ctx context.Context, manifest []byte) error {
	reader := yaml.NewYAMLReader(bufio.NewReader(bytes.NewReader(manifest)))
	for {
		doc, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read manifest document: %w", err)
		}
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}

		obj := &unstructured.Unstructured{}
		if err := yaml.Unmarshal(doc, &obj.Object); err != nil {
			return fmt.Errorf("failed to parse manifest document: %w", err)
		}
		if obj.GetKind() == "" {
			continue
		}

		if err := c.applyObject(ctx, obj); err != nil {
			return err
		}
	}
}

func (c *Client) applyObject(ctx context.Context, obj *unstructured.Unstructured) error {
	gvr, namespaced := resourceFor(obj.GroupVersionKind())

	var iface interface {
		Create(ctx context.Context, obj *unstructured.Unstructured, options metav1.CreateOptions, subresources ...string) (*unstructured.Unstructured, error)
		Update(ctx context.Context, obj *unstructured.Unstructured, options metav1.UpdateOptions, subresources ...string) (*unstructured.Unstructured, error)
		Get(ctx context.Context, name string, options metav1.GetOptions, subresources ...string) (*unstructured.Unstructured, error)
	}
	if namespaced {
		ns := obj.GetNamespace()
		if ns == "" {
			ns = "default"
		}
		iface = c.dynamic.Resource(gvr).Namespace(ns)
	} else {
		iface = c.dynamic.Resource(gvr)
	}

	_, err := iface.Create(ctx, obj, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create %s %s: %w", obj.GetKind(), obj.GetName(), err)
	}

	existing, err := iface.Get(ctx, obj.GetName(), metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get existing %s %s: %w", obj.GetKind(), obj.GetName(), err)
	}
	obj.SetResourceVersion(existing.GetResourceVersion())
	if _, err := iface.Update(ctx, obj, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update %s %s: %w", obj.GetKind(), obj.GetName(), err)
	}
	return nil
}

// resourceFor maps a GroupVersionKind to its resource name and scope. The
// workflow applies a small, known set of kinds; anything else falls back to
// the lowercased plural convention and namespaced scope.
func resourceFor(gvk schema.GroupVersionKind) (schema.GroupVersionResource, bool) {
	switch gvk.Kind {
	case "Namespace":
		return gvk.GroupVersion().WithResource("namespaces"), false
	case "ClusterSecretStore", "ClusterRole", "ClusterRoleBinding":
		return gvk.GroupVersion().WithResource(lowerPlural(gvk.Kind)), false
	case "Ingress":
		return gvk.GroupVersion().WithResource("ingresses"), true
	default:
		return gvk.GroupVersion().WithResource(lowerPlural(gvk.Kind)), true
	}
}

func lowerPlural(kind string) string {
	return strings.ToLower(kind) + "s"
}
