package handlers

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/stocktrader-ops/tradectl/internal/orchestration"
	"github.com/stocktrader-ops/tradectl/internal/util/naming"
)

// confirmDestroy reads the confirmation from stdin. Swappable for tests.
var confirmDestroy = func(environment string) (bool, error) {
	fmt.Printf("This deletes every resource of environment %q. Type the environment name to confirm: ", environment)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(line) == environment, nil
}

// Destroy tears down the environment in reverse dependency order. A
// missing resource group means there is nothing to do; a partially
// destroyed environment is cleaned up by re-running.
func Destroy(ctx context.Context, configPath string, yes bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if !yes {
		ok, err := confirmDestroy(cfg.Environment)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("confirmation did not match environment name, aborting")
		}
	}

	pctx, err := newWorkflowContext(ctx, cfg)
	if err != nil {
		return err
	}

	exists, err := pctx.Cloud.ResourceGroupExists(pctx)
	if err != nil {
		return fmt.Errorf("failed to check resource group: %w", err)
	}
	if !exists {
		pctx.Observer.Printf("resource group %s does not exist, nothing to destroy",
			naming.ResourceGroup(cfg.Environment))
		return nil
	}

	runCtx, cancel := context.WithTimeout(ctx, pctx.Timeouts.RunTimeout)
	defer cancel()
	pctx.Context = runCtx

	executor, err := orchestration.NewExecutor(
		orchestration.DestroyNodes(), cfg.Parallelism, !cfg.ContinueOnFailure)
	if err != nil {
		return err
	}

	pctx.Observer.Printf("destroying environment %q", cfg.Environment)
	result, runErr := executor.Run(pctx)
	printResult(os.Stdout, result)
	return runErr
}
