package wizard

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stocktrader-ops/tradectl/internal/config"
)

const fileHeader = `# tradectl deployment configuration.
# Generated by 'tradectl init'. Every value is explicit; edit and re-run
# 'tradectl precheck' to validate changes.
`

// WriteConfig writes the fully expanded configuration to a YAML file.
func WriteConfig(cfg *config.Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(fileHeader)
	sb.WriteString("\n")
	sb.Write(data)

	if err := os.WriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
