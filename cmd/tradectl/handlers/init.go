package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/stocktrader-ops/tradectl/internal/config/wizard"
)

const starterConfig = `# tradectl deployment configuration.
# Resource names are derived from the environment name.
environment: dev
subscription_id: 00000000-0000-0000-0000-000000000000
tenant_id: 00000000-0000-0000-0000-000000000000
region: eastus

# namespace: stock-trader
# service_account: stock-trader
# parallelism: 4

network:
  vnet_cidr: 10.10.0.0/16
  cluster_subnet_cidr: 10.10.0.0/22
  database_subnet_cidr: 10.10.4.0/24

cluster:
  node_count: 3
  node_size: Standard_D2s_v3

database:
  name: traderdb
  admin_user: trader
  admin_password: change-me-now-please
  sku: Standard_B1ms
  storage_gb: 32

cache:
  sku: Basic
  capacity: 1

mesh:
  enabled: false
  version: 1.24.2
`

// Wizard plumbing is swappable for tests.
var (
	stdinIsTerminal = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
	}
	runWizard         = wizard.Run
	writeWizardConfig = wizard.WriteConfig
)

// Init creates the configuration file. On a terminal it runs the
// interactive wizard; piped or scripted invocations get a commented
// starter file instead. An existing file is preserved unless force is set.
func Init(ctx context.Context, path string, force bool, out io.Writer) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if !stdinIsTerminal() {
		if err := os.WriteFile(path, []byte(starterConfig), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(out, "Wrote %s. Fill in subscription_id, tenant_id, and database.admin_password, then run `tradectl precheck`.\n", path)
		return nil
	}

	result, err := runWizard(ctx)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	if err := writeWizardConfig(wizard.BuildConfig(result), path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s for environment %q. Run `tradectl precheck` next.\n", path, result.Environment)
	return nil
}
