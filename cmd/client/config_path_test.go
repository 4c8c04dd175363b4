package main

import (
	"path/filepath"
	"testing"

	"github.com/openmined/scriptsync/internal/client/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfigFlagCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringP("config", "c", config.DefaultConfigPath, "")
	return cmd
}

func TestResolveConfigPath_FlagWins(t *testing.T) {
	t.Setenv("SCRIPTSYNC_CONFIG_PATH", "/from/env.json")
	cmd := newConfigFlagCmd()
	require.NoError(t, cmd.Flags().Set("config", "/from/flag.json"))

	assert.Equal(t, "/from/flag.json", resolveConfigPath(cmd))
}

func TestResolveConfigPath_Env(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("SCRIPTSYNC_CONFIG_PATH", path)

	assert.Equal(t, path, resolveConfigPath(newConfigFlagCmd()))
}
