package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/rshade/ecolife/internal/logging"
)

// projectDirName is the project-local configuration directory.
const projectDirName = ".ecolife"

// resolvedProjectDir holds the resolved project directory path for use
// by other config functions during the lifetime of a CLI invocation.
var (
	resolvedProjectDir   string       //nolint:gochecknoglobals // Set once at startup, read by config loaders
	resolvedProjectDirMu sync.RWMutex //nolint:gochecknoglobals // Protects resolvedProjectDir
)

// SetResolvedProjectDir stores the resolved project directory for use by other config functions.
func SetResolvedProjectDir(dir string) {
	resolvedProjectDirMu.Lock()
	defer resolvedProjectDirMu.Unlock()
	resolvedProjectDir = dir
}

// GetResolvedProjectDir returns the stored resolved project directory.
func GetResolvedProjectDir() string {
	resolvedProjectDirMu.RLock()
	defer resolvedProjectDirMu.RUnlock()
	return resolvedProjectDir
}

// ResolveProjectDir determines the project-local .ecolife directory path.
// It checks (in order):
//  1. flagValue (--project-dir CLI flag)
//  2. ECOLIFE_PROJECT_DIR env var
//  3. the nearest ancestor of startDir containing a .ecolife directory
//
// Returns an absolute path, or "" when no project is found. The global
// config directory is never treated as a project. Does not create anything.
func ResolveProjectDir(ctx context.Context, flagValue, startDir string) string {
	if flagValue != "" {
		return toAbsProjectDir(ctx, flagValue)
	}

	if envDir := os.Getenv(EnvProjectDir); envDir != "" {
		return toAbsProjectDir(ctx, envDir)
	}

	if startDir == "" {
		return ""
	}
	globalDir, _ := GetConfigDir()
	dir := toAbs(ctx, startDir)
	for {
		candidate := filepath.Join(dir, projectDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() && candidate != globalDir {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// NewWithProjectDir creates a Config by loading global config then
// shallow-merging project-local config on top. If projectDir is empty,
// behaves identically to New().
func NewWithProjectDir(ctx context.Context, projectDir string) *Config {
	if projectDir == "" {
		return New()
	}

	overlayPath := filepath.Join(projectDir, defaultConfigFile)
	if _, err := os.Stat(overlayPath); err != nil {
		// Missing project config is not an error.
		return New()
	}

	cfg := newBase()
	if err := ShallowMergeYAML(cfg, overlayPath); err != nil {
		logging.FromContext(ctx).Warn().
			Str("component", "config").
			Str("operation", "merge_project_config").
			Err(err).
			Str("overlay_path", overlayPath).
			Msg("failed to merge project config, using global defaults")
		return New()
	}
	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	return cfg
}

// toAbsProjectDir converts dir to an absolute path and appends ".ecolife"
// unless it already ends with it.
func toAbsProjectDir(ctx context.Context, dir string) string {
	abs := toAbs(ctx, dir)
	if filepath.Base(abs) == projectDirName {
		return abs
	}
	return filepath.Join(abs, projectDirName)
}

func toAbs(ctx context.Context, dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		logging.FromContext(ctx).Warn().
			Str("component", "config").
			Err(err).
			Str("dir", dir).
			Msg("failed to resolve absolute path for project directory")
		return dir
	}
	return abs
}
