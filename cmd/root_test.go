package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"populate", "status", "cache"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "zipgeo", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestPopulateCommand_Flags(t *testing.T) {
	for _, name := range []string{"table", "cache-file", "delay", "dry-run"} {
		flag := populateCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "populate command should have --%s flag", name)
	}

	dry := populateCmd.Flags().Lookup("dry-run")
	assert.Equal(t, "false", dry.DefValue)
}

func TestStatusCommand_Flags(t *testing.T) {
	flag := statusCmd.Flags().Lookup("table")
	require.NotNil(t, flag, "status command should have --table flag")
}

func TestCacheCommand_HasStats(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range cacheCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["stats"])
}
