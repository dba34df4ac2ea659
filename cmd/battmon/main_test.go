package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/battmon/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battmon.toml")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--create-config", "--config", path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), path)

	_, err := os.Stat(path)
	require.NoError(t, err)

	cfg, err := config.Load(config.WithConfigFile(path))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *cfg)
}

func TestInvalidConfigRefusesToStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battmon.toml")
	require.NoError(t, os.WriteFile(path, []byte("battery_threshold = 0\n"), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.KeyThreshold)
}

func TestRejectsArguments(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"unexpected"})
	assert.Error(t, cmd.Execute())
}

func TestVersionFlag(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), version)
}
