package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStoreHonorsConfigFlag(t *testing.T) {
	t.Setenv("GOAC_HOME", "")
	t.Setenv("GOAC_DB", "")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "custom.yaml")
	yaml := "home: " + dir + "\ndatabase_path: custom.db\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))

	configPath = cfgPath
	homeDir = ""
	defer func() { configPath = "" }()

	cfg, s, err := openStore()
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, filepath.Join(dir, "custom.db"), cfg.DBPath())
	assert.Equal(t, cfg.DBPath(), s.Path())
}

func TestOpenStoreHomeFlagOverridesConfigHome(t *testing.T) {
	t.Setenv("GOAC_HOME", "")
	t.Setenv("GOAC_DB", "")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("home: /elsewhere\n"), 0o600))

	configPath = cfgPath
	homeDir = filepath.Join(dir, "state")
	defer func() { configPath = ""; homeDir = "" }()

	cfg, s, err := openStore()
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, filepath.Join(dir, "state", "goac.db"), cfg.DBPath())
}
