package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot_HasAllSubcommands(t *testing.T) {
	t.Parallel()

	root := Root()
	require.Equal(t, "tradectl", root.Use)

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"init", "plan", "apply", "destroy", "precheck", "postcheck", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestDestroy_HasYesFlag(t *testing.T) {
	t.Parallel()

	cmd := Destroy()
	assert.NotNil(t, cmd.Flags().Lookup("yes"))
	assert.NotNil(t, cmd.Flags().Lookup("config"))
}
