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

	expected := []string{"scan", "serve", "areas", "action", "export", "stats"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "geoaudit", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestScanCommand_RequiredFlags(t *testing.T) {
	for _, name := range []string{"satellite", "layout", "area-id", "area-name"} {
		require.NotNil(t, scanCmd.Flags().Lookup(name), "scan command should have --%s flag", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestAreasCommand_HasSubcommands(t *testing.T) {
	cmds := areasCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"list", "get", "delete"} {
		assert.True(t, names[name], "expected areas subcommand %q not found", name)
	}
}

func TestActionCommand_Flags(t *testing.T) {
	for _, name := range []string{"area", "plot", "type", "email"} {
		require.NotNil(t, actionCmd.Flags().Lookup(name), "action command should have --%s flag", name)
	}
}

func TestExportCommand_HasSubcommands(t *testing.T) {
	cmds := exportCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"shapefile", "register"} {
		assert.True(t, names[name], "expected export subcommand %q not found", name)
	}

	out := exportCmd.PersistentFlags().Lookup("out")
	require.NotNil(t, out)
	assert.Equal(t, ".", out.DefValue)
}
