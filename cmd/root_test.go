package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilePath(t *testing.T) {
	assert.NoError(t, validateFilePath("rules"))
	assert.NoError(t, validateFilePath("policy.xlsx"))
	assert.NoError(t, validateFilePath("/var/ossec/etc/rules"))

	assert.Error(t, validateFilePath("../etc/passwd"))
	assert.Error(t, validateFilePath("rules/../../secret"))
	// URL-encoded traversal must not slip through.
	assert.Error(t, validateFilePath("%2e%2e%2fsecret"))
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"gen-policy", "check", "apply", "history", "levels"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "missing subcommand %s", name)
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	root := NewRootCmd()
	for _, flag := range []string{"json", "config", "no-color", "quiet"} {
		require.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}
}

func TestApplyCmd_Flags(t *testing.T) {
	root := NewRootCmd()
	apply, _, err := root.Find([]string{"apply"})
	require.NoError(t, err)

	for _, flag := range []string{"policy", "fix", "overwrite", "map-levels", "out", "single", "dry-run"} {
		assert.NotNil(t, apply.Flags().Lookup(flag), "missing flag %s", flag)
	}
}
