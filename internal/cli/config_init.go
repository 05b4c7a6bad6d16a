package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rshade/ecolife/internal/config"
)

// NewConfigInitCmd creates the config init command for initializing configuration.
// With a resolved project directory (and without --global) it writes a
// project-local .ecolife/config.yaml plus .gitignore; otherwise the global
// ~/.ecolife/config.yaml.
func NewConfigInitCmd() *cobra.Command {
	var (
		force  bool
		global bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a new configuration file with default values.

When a project directory is given (--project-dir or ECOLIFE_PROJECT_DIR), or an
ancestor directory already holds .ecolife/, creates $PROJECT/.ecolife/config.yaml
with a .gitignore that keeps the ledger and cache out of version control.
Use --global to initialize the global configuration instead.`,
		Example: `  # Create global configuration
  ecolife config init

  # Create project-local configuration
  ecolife config init --project-dir .

  # Overwrite an existing file
  ecolife config init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir := config.GetResolvedProjectDir()

			if projectDir != "" && !global {
				return initProjectConfig(cmd, projectDir, force)
			}

			return initGlobalConfig(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	cmd.Flags().BoolVar(&global, "global", false, "initialize global configuration even inside a project")

	return cmd
}

// checkWritable refuses to clobber an existing file unless force is set.
func checkWritable(path string, force bool) error {
	if force {
		return nil
	}
	_, err := os.Stat(path)
	if err == nil {
		return errors.New("configuration file already exists, use --force to overwrite")
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access config path %s: %w", path, err)
	}
	return nil
}

// initProjectConfig creates project-local config at projectDir/config.yaml with .gitignore.
func initProjectConfig(cmd *cobra.Command, projectDir string, force bool) error {
	configPath := filepath.Join(projectDir, "config.yaml")
	if err := checkWritable(configPath, force); err != nil {
		return err
	}

	if err := os.MkdirAll(projectDir, 0o750); err != nil {
		return fmt.Errorf("failed to create project config directory: %w", err)
	}

	// Project ledgers live next to the project config.
	cfg := config.Default()
	cfg.Storage.FilePath = filepath.Join(projectDir, "ledger.json")
	cfg.Cache.Directory = filepath.Join(projectDir, "cache")
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	created, err := config.EnsureGitignore(projectDir)
	if err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}

	cmd.Printf("Configuration initialized at %s\n", configPath)
	if created {
		cmd.Printf("Created .gitignore to keep the ledger out of version control\n")
	}

	return nil
}

// initGlobalConfig creates global config at ~/.ecolife/config.yaml.
func initGlobalConfig(cmd *cobra.Command, force bool) error {
	dir, err := config.GetConfigDir()
	if err != nil {
		return err
	}
	configPath := filepath.Join(dir, "config.yaml")
	if err = checkWritable(configPath, force); err != nil {
		return err
	}

	if err = config.Default().Save(configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	if err = config.EnsureSubDirs(); err != nil {
		return fmt.Errorf("failed to create configuration directories: %w", err)
	}

	cmd.Printf("Configuration initialized successfully\n")
	cmd.Printf("Configuration file: %s\n", configPath)

	return nil
}
