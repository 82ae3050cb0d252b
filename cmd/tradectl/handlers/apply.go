package handlers

import (
	"context"
	"os"

	"github.com/stocktrader-ops/tradectl/internal/orchestration"
)

// Apply provisions the environment end to end. The run is bounded by the
// configured whole-run timeout; on failure the audit table names the failed
// node and everything it blocked, and already-provisioned resources stay in
// place for the next converging run.
func Apply(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	pctx, err := newWorkflowContext(ctx, cfg)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, pctx.Timeouts.RunTimeout)
	defer cancel()
	pctx.Context = runCtx

	executor, err := orchestration.NewExecutor(
		orchestration.DeployNodes(), cfg.Parallelism, !cfg.ContinueOnFailure)
	if err != nil {
		return err
	}

	pctx.Observer.Printf("deploying environment %q (run %s)", cfg.Environment, pctx.State.RunID())
	result, runErr := executor.Run(pctx)
	printResult(os.Stdout, result)

	if runErr == nil && pctx.State.AppAddress() != "" {
		pctx.Observer.Printf("stock trader is up: http://%s", pctx.State.AppAddress())
	}
	return runErr
}
