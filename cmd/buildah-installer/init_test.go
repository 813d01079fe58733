package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satococoa/buildah-installer/internal/config"
)

func TestNewInitCommand(t *testing.T) {
	cmd := NewInitCommand()

	assert.NotNil(t, cmd)
	assert.Equal(t, "init", cmd.Name)
	assert.Equal(t, "Initialize configuration file", cmd.Usage)
	assert.NotEmpty(t, cmd.Description)
	assert.NotNil(t, cmd.Action)
}

func TestConfigFileMode(t *testing.T) {
	assert.Equal(t, os.FileMode(0o600), os.FileMode(configFileMode))
}

func TestInitCommand_CreatesConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	out, _, err := runApp(t, "init")

	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file created: "+config.ConfigFileName)

	content, err := os.ReadFile(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, config.Template, string(content))

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPackage, cfg.Target.Package)
}

func TestInitCommand_ConfigAlreadyExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1.0\"\n"), 0o600))

	_, _, err := runApp(t, "init", "--config", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file already exists")

	content, _ := os.ReadFile(path)
	assert.Equal(t, "version: \"1.0\"\n", string(content), "existing file must be left alone")
}

func TestInitCommand_Force(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	_, _, err := runApp(t, "init", "--config", path, "--force")

	require.NoError(t, err)
	content, _ := os.ReadFile(path)
	assert.Equal(t, config.Template, string(content))
}

func TestInitCommand_WriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "settings.yml")

	_, _, err := runApp(t, "init", "--config", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write file")
	assert.Contains(t, err.Error(), "Directory does not exist")
}
