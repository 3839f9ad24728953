package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chronicle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	// An explicit but missing config file is an error; loading with no
	// file at all falls back to defaults.
	require.Error(t, err)

	ResetConfig()
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg, err = LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultURI, cfg.URI)
	assert.Equal(t, DefaultPluginsDir, cfg.PluginsDir)
	assert.Equal(t, DefaultLimit, cfg.Limit)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	path := writeConfigFile(t, "uri: sqlite:///tmp/pond.db\nlimit: 25\nverbose: true\n")
	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "sqlite:///tmp/pond.db", cfg.URI)
	assert.Equal(t, 25, cfg.Limit)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, path, GetConfigFileUsed())
	// Untouched keys keep their defaults
	assert.Equal(t, DefaultPluginsDir, cfg.PluginsDir)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	path := writeConfigFile(t, "uri: sqlite:///tmp/file.db\n")
	t.Setenv("CHRONICLE_URI", "sqlite:///tmp/env.db")
	t.Setenv("CHRONICLE_SAVE_DIR", "/tmp/downloads")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/env.db", cfg.URI)
	assert.Equal(t, "/tmp/downloads", cfg.SaveDir)
}

func TestLoadConfig_FlagsOverrideEverything(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	path := writeConfigFile(t, "uri: sqlite:///tmp/file.db\nplugins_dir: from-file\n")
	t.Setenv("CHRONICLE_URI", "sqlite:///tmp/env.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("uri", "", "")
	flags.String("plugins-dir", "", "")
	flags.Int("limit", 0, "")
	require.NoError(t, flags.Set("uri", "sqlite:///tmp/flag.db"))
	require.NoError(t, flags.Set("plugins-dir", "from-flag"))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/flag.db", cfg.URI)
	assert.Equal(t, "from-flag", cfg.PluginsDir, "kebab-case flag maps to snake_case key")
	assert.Equal(t, DefaultLimit, cfg.Limit, "unchanged flags are ignored")
}

func TestGetCurrentConfig(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	assert.Nil(t, GetCurrentConfig())

	path := writeConfigFile(t, "limit: 7\n")
	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Same(t, cfg, GetCurrentConfig())
}
