package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalConfig(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	cfg := GetGlobalConfig()
	require.NotNil(t, cfg)
	assert.Same(t, cfg, GetGlobalConfig())
	assert.Equal(t, "table", GetDefaultOutputFormat())
	assert.Equal(t, 2, GetOutputPrecision())

	replacement := Default()
	replacement.Output.DefaultFormat = FormatJSON
	SetGlobalConfig(replacement)
	assert.Same(t, replacement, GetGlobalConfig())
	assert.Equal(t, "json", GetDefaultOutputFormat())

	ResetGlobalConfigForTest()
	assert.NotSame(t, replacement, GetGlobalConfig())
}

func TestEnsureSubDirs(t *testing.T) {
	home := filepath.Join(t.TempDir(), "ecolife-home")
	t.Setenv(EnvHome, home)
	t.Setenv(EnvLogFile, filepath.Join(home, "logs", "ecolife.log"))
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	require.NoError(t, EnsureSubDirs())

	for _, dir := range []string{home, filepath.Join(home, "cache"), filepath.Join(home, "logs")} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv(EnvHome, "/opt/ecolife")
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/opt/ecolife", dir)

	t.Setenv(EnvHome, "")
	t.Setenv("HOME", "/home/tester")
	dir, err = GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".ecolife"), dir)
}

func TestToLoggingConfig(t *testing.T) {
	lc := LoggingConfig{Level: "debug", Format: "json"}
	got := lc.ToLoggingConfig()
	assert.Equal(t, "stderr", got.Output)
	assert.Equal(t, "debug", got.Level)

	lc.File = "/var/log/ecolife.log"
	got = lc.ToLoggingConfig()
	assert.Equal(t, "file", got.Output)
	assert.Equal(t, "/var/log/ecolife.log", got.File)
}
