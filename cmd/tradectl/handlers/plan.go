package handlers

import (
	"fmt"
	"io"
	"strings"

	"github.com/stocktrader-ops/tradectl/internal/orchestration"
)

// Plan prints the topological execution order the deployment would follow,
// marking nodes pruned by a feature toggle. Nothing external is contacted.
func Plan(configPath string, out io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	executor, err := orchestration.NewExecutor(
		orchestration.DeployNodes(), cfg.Parallelism, !cfg.ContinueOnFailure)
	if err != nil {
		return err
	}

	steps, err := executor.Plan(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Execution plan for environment %q (%d nodes, parallelism %d):\n\n",
		cfg.Environment, len(steps), cfg.Parallelism)
	for i, step := range steps {
		marker := " "
		if step.Skipped {
			marker = "-"
		}
		line := fmt.Sprintf("%s %2d. %s", marker, i+1, step.ID)
		if len(step.Requires) > 0 {
			line += "  (after " + strings.Join(step.Requires, ", ") + ")"
		}
		if step.Skipped {
			line += "  [skipped: feature disabled]"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
