package naming

import (
	"fmt"
	"strings"
)

// Naming functions for deployment resources.
// All Azure and cluster-side resources follow consistent naming patterns
// derived from the environment name to enable easy identification and
// symmetric teardown.

func ResourceGroup(env string) string {
	return fmt.Sprintf("%s-rg", env)
}

func VirtualNetwork(env string) string {
	return fmt.Sprintf("%s-vnet", env)
}

func Cluster(env string) string {
	return fmt.Sprintf("%s-aks", env)
}

func Database(env string) string {
	return fmt.Sprintf("%s-db", env)
}

func Cache(env string) string {
	return fmt.Sprintf("%s-cache", env)
}

// Vault returns the Key Vault name. Vault names are globally unique,
// 3-24 characters, alphanumeric and dashes only.
func Vault(env string) string {
	name := fmt.Sprintf("%s-kv", sanitize(env))
	if len(name) > 24 {
		name = name[:24]
	}
	return strings.TrimRight(name, "-")
}

func Identity(env string) string {
	return fmt.Sprintf("%s-trader-identity", env)
}

func FederatedCredential(env string) string {
	return fmt.Sprintf("%s-trader-federation", env)
}

// FunctionApp returns the function app name, which doubles as its DNS label.
func FunctionApp(env string) string {
	return fmt.Sprintf("%s-quote-fn", sanitize(env))
}

func SecretStore(env string) string {
	return fmt.Sprintf("%s-vault-store", env)
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
