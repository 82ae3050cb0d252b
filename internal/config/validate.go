package config

import (
	"fmt"
	"net"
	"regexp"

	"github.com/google/uuid"
)

// InvalidConfigurationError indicates the supplied configuration failed
// validation before any external call was attempted. Never retried.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// ValidRegions contains the Azure regions this deployment supports.
var ValidRegions = map[string]bool{
	"eastus":        true,
	"eastus2":       true,
	"westus2":       true,
	"westus3":       true,
	"centralus":     true,
	"northeurope":   true,
	"westeurope":    true,
	"uksouth":       true,
	"swedencentral": true,
	"southeastasia": true,
	"australiaeast": true,
}

// environmentPattern bounds environment names so every derived resource name
// stays within provider limits: lowercase alphanumeric and dashes, starting
// with a letter, 3-20 characters.
var environmentPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{2,19}$`)

// namespacePattern matches a DNS-1123 label.
var namespacePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Validate checks the configuration and returns an InvalidConfigurationError
// naming the first offending field.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return invalid("environment", "is required")
	}
	if !environmentPattern.MatchString(c.Environment) {
		return invalid("environment", "must be 3-20 lowercase alphanumeric characters or dashes, starting with a letter")
	}
	if c.SubscriptionID == "" {
		return invalid("subscription_id", "is required")
	}
	if _, err := uuid.Parse(c.SubscriptionID); err != nil {
		return invalid("subscription_id", "must be a UUID")
	}
	if c.TenantID == "" {
		return invalid("tenant_id", "is required")
	}
	if _, err := uuid.Parse(c.TenantID); err != nil {
		return invalid("tenant_id", "must be a UUID")
	}
	if c.Region == "" {
		return invalid("region", "is required")
	}
	if !ValidRegions[c.Region] {
		return invalid("region", fmt.Sprintf("%q is not a supported region", c.Region))
	}
	if !namespacePattern.MatchString(c.Namespace) {
		return invalid("namespace", "must be a valid DNS label")
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	if c.Cluster.NodeCount < 1 {
		return invalid("cluster.node_count", "must be at least 1")
	}
	if c.Database.AdminPassword == "" {
		return invalid("database.admin_password", "is required")
	}
	if len(c.Database.AdminPassword) < 12 {
		return invalid("database.admin_password", "must be at least 12 characters")
	}
	return nil
}

func (c *Config) validateNetwork() error {
	_, vnet, err := net.ParseCIDR(c.Network.VNetCIDR)
	if err != nil {
		return invalid("network.vnet_cidr", err.Error())
	}
	for field, cidr := range map[string]string{
		"network.cluster_subnet_cidr":  c.Network.ClusterSubnet,
		"network.database_subnet_cidr": c.Network.DatabaseSubnet,
	} {
		ip, subnet, err := net.ParseCIDR(cidr)
		if err != nil {
			return invalid(field, err.Error())
		}
		if !vnet.Contains(ip) {
			return invalid(field, fmt.Sprintf("%s is not contained in vnet %s", subnet, vnet))
		}
	}
	return nil
}

func invalid(field, reason string) error {
	return &InvalidConfigurationError{Field: field, Reason: reason}
}
