package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/ecolife/internal/config"
)

func TestResolveProjectDir(t *testing.T) {
	ctx := context.Background()

	t.Run("flag wins over env", func(t *testing.T) {
		isolate(t)
		flagDir := t.TempDir()
		t.Setenv(config.EnvProjectDir, t.TempDir())

		got := config.ResolveProjectDir(ctx, flagDir, "/does/not/matter")
		assert.Equal(t, filepath.Join(flagDir, ".ecolife"), got)
	})

	t.Run("env", func(t *testing.T) {
		isolate(t)
		envDir := t.TempDir()
		t.Setenv(config.EnvProjectDir, envDir)

		got := config.ResolveProjectDir(ctx, "", "/does/not/matter")
		assert.Equal(t, filepath.Join(envDir, ".ecolife"), got)
	})

	t.Run("suffix is not doubled", func(t *testing.T) {
		isolate(t)
		dir := filepath.Join(t.TempDir(), ".ecolife")
		assert.Equal(t, dir, config.ResolveProjectDir(ctx, dir, ""))
	})

	t.Run("relative flag becomes absolute", func(t *testing.T) {
		isolate(t)
		got := config.ResolveProjectDir(ctx, "relative/project", "")
		assert.True(t, filepath.IsAbs(got))
	})

	t.Run("walks up to nearest project", func(t *testing.T) {
		isolate(t)
		root := t.TempDir()
		outer := filepath.Join(root, ".ecolife")
		inner := filepath.Join(root, "apps", "tracker", ".ecolife")
		deep := filepath.Join(root, "apps", "tracker", "src", "pkg")
		require.NoError(t, os.MkdirAll(outer, 0o750))
		require.NoError(t, os.MkdirAll(inner, 0o750))
		require.NoError(t, os.MkdirAll(deep, 0o750))

		assert.Equal(t, inner, config.ResolveProjectDir(ctx, "", deep))
		assert.Equal(t, outer, config.ResolveProjectDir(ctx, "", filepath.Join(root, "apps")))
	})

	t.Run("no project", func(t *testing.T) {
		isolate(t)
		assert.Empty(t, config.ResolveProjectDir(ctx, "", t.TempDir()))
		assert.Empty(t, config.ResolveProjectDir(ctx, "", ""))
	})

	t.Run("global dir is not a project", func(t *testing.T) {
		root := t.TempDir()
		global := filepath.Join(root, ".ecolife")
		require.NoError(t, os.MkdirAll(global, 0o750))
		isolate(t)
		t.Setenv(config.EnvHome, global)

		assert.Empty(t, config.ResolveProjectDir(ctx, "", root))
	})
}

func TestSetResolvedProjectDir_RoundTrip(t *testing.T) {
	t.Cleanup(func() { config.SetResolvedProjectDir("") })
	config.SetResolvedProjectDir("/tmp/project/.ecolife")
	assert.Equal(t, "/tmp/project/.ecolife", config.GetResolvedProjectDir())
}

func TestNewWithProjectDir(t *testing.T) {
	ctx := context.Background()

	t.Run("empty dir behaves like New", func(t *testing.T) {
		isolate(t)
		assert.Equal(t, config.New().Goals, config.NewWithProjectDir(ctx, "").Goals)
	})

	t.Run("missing overlay", func(t *testing.T) {
		isolate(t)
		cfg := config.NewWithProjectDir(ctx, t.TempDir())
		assert.Equal(t, "table", cfg.Output.DefaultFormat)
	})

	t.Run("overlay on global", func(t *testing.T) {
		home := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(`
output:
  default_format: json
server:
  addr: ":9000"
`), 0o600))
		project := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(project, "config.yaml"), []byte(`
goals:
  daily: 3
server:
  allowed_origins: ["https://team.example"]
`), 0o600))

		cfg := config.NewWithProjectDir(ctx, project)
		assert.Equal(t, "json", cfg.Output.DefaultFormat, "global value kept")
		assert.InDelta(t, 3.0, cfg.Goals.DailyGoal, 1e-9)
		assert.InDelta(t, 35.0, cfg.Goals.WeeklyGoal, 1e-9, "emptied fields take defaults")
		assert.Equal(t, ":8080", cfg.Server.Addr, "server section replaced, addr defaulted")
		assert.Equal(t, []string{"https://team.example"}, cfg.Server.AllowedOrigins)
		require.NoError(t, cfg.Validate())
	})

	t.Run("env beats overlay", func(t *testing.T) {
		isolate(t)
		project := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(project, "config.yaml"),
			[]byte("output:\n  default_format: json\n"), 0o600))
		t.Setenv(config.EnvOutputFormat, "table")

		assert.Equal(t, "table", config.NewWithProjectDir(ctx, project).Output.DefaultFormat)
	})

	t.Run("corrupt overlay falls back", func(t *testing.T) {
		isolate(t)
		project := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(project, "config.yaml"), []byte("goals: [1"), 0o600))

		cfg := config.NewWithProjectDir(ctx, project)
		assert.InDelta(t, 5.0, cfg.Goals.DailyGoal, 1e-9)
	})
}
