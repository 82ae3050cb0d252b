package handlers

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/stocktrader-ops/tradectl/internal/config"
	"github.com/stocktrader-ops/tradectl/internal/util/cmdexec"
	"github.com/stocktrader-ops/tradectl/internal/util/retry"
)

// check is one named verification with a pass/fail outcome.
type check struct {
	name string
	run  func() error
}

func runChecks(out io.Writer, checks []check) error {
	failed := 0
	for _, c := range checks {
		if err := c.run(); err != nil {
			failed++
			fmt.Fprintf(out, "  FAIL  %-28s %v\n", c.name, err)
			continue
		}
		fmt.Fprintf(out, "  ok    %s\n", c.name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	return nil
}

// Precheck validates everything a run needs before any resource is
// created: the configuration, the Azure CLI the default credential chain
// resolves through, and a live credential probe against the subscription.
func Precheck(ctx context.Context, configPath string, out io.Writer) error {
	var cfg *config.Config

	fmt.Fprintln(out, "Running prechecks:")
	return runChecks(out, []check{
		{
			name: "configuration valid",
			run: func() error {
				loaded, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
				return nil
			},
		},
		{
			name: "azure cli available",
			run: func() error {
				if !cmdexec.LookPath("az") {
					return fmt.Errorf("az not found in PATH")
				}
				runner := cmdexec.NewRunner(retry.Fixed(2, time.Second))
				_, err := runner.Run(ctx, "az", "version", "--output", "none")
				return err
			},
		},
		{
			name: "credentials accepted",
			run: func() error {
				if cfg == nil {
					return fmt.Errorf("skipped: configuration invalid")
				}
				cloud, err := newCloudClient(cfg)
				if err != nil {
					return err
				}
				// Any authorized answer proves the credential; the group
				// itself may or may not exist yet.
				_, err = cloud.ResourceGroupExists(ctx)
				return err
			},
		},
	})
}
