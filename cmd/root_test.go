package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "candidates", "migrate", "import"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "pricing-engine", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestCandidatesCommand_Flags(t *testing.T) {
	for _, name := range []string{"category", "brand", "model", "issue", "lat", "lng", "sort", "radius", "market-price", "segment"} {
		assert.NotNil(t, candidatesCmd.Flags().Lookup(name), "missing --%s", name)
	}
	assert.Equal(t, "distance", candidatesCmd.Flags().Lookup("sort").DefValue)
}

func TestImportCommand_HasTiers(t *testing.T) {
	var found bool
	for _, c := range importCmd.Commands() {
		if c.Name() == "tiers" {
			found = true
		}
	}
	assert.True(t, found)
	require.NotNil(t, importTiersCmd.Flags().Lookup("provider"))
}
