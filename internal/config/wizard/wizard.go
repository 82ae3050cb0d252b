// Package wizard implements the interactive configuration setup. Each
// question group is a separate form so cancellation names the group the
// operator backed out of. The answers build a fully expanded Config, so
// the written file looks the same as a hand-maintained one.
package wizard

import (
	"context"
	"fmt"

	"github.com/stocktrader-ops/tradectl/internal/config"
)

// Result holds the answers from the interactive wizard.
type Result struct {
	Environment    string
	Region         string
	SubscriptionID string
	TenantID       string

	NodeCount int
	NodeSize  string

	AdminPassword string

	MeshEnabled bool
}

// Run drives the question groups in order. The context cancels the forms,
// so Ctrl+C aborts cleanly mid-question.
func Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	if err := runIdentityGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("deployment identity: %w", err)
	}
	if err := runSubscriptionGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("azure subscription: %w", err)
	}
	if err := runClusterGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("cluster sizing: %w", err)
	}
	if err := runDatabaseGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := runFeaturesGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}

	return result, nil
}

// BuildConfig expands the wizard answers into a complete configuration.
// Everything the wizard does not ask about gets the documented default.
func BuildConfig(result *Result) *config.Config {
	cfg := &config.Config{
		Environment:    result.Environment,
		SubscriptionID: result.SubscriptionID,
		TenantID:       result.TenantID,
		Region:         result.Region,
	}
	cfg.Cluster.NodeCount = result.NodeCount
	cfg.Cluster.NodeSize = result.NodeSize
	cfg.Database.AdminPassword = result.AdminPassword
	cfg.Mesh.Enabled = result.MeshEnabled
	cfg.ApplyDefaults()
	return cfg
}
