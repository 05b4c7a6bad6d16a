package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/ecolife/internal/config"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validates the effective configuration (global file, project overlay and
ECOLIFE_* environment variables) for syntax and semantic correctness.

This includes:
- output format and storage/cache backend names
- backend-specific settings (mongo_uri, redis_addr, cache directory)
- cache TTL bounds
- goal thresholds and reference values
- category shares and emission factor overrides
- scheduler cron expression and concurrency`,
		Example: `  # Validate current configuration
  ecolife config validate

  # Validate and show detailed information
  ecolife config validate --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := config.GetGlobalConfig()
	if err := cfg.LoadError(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cmd.Printf("Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}

	return nil
}

// printVerboseDetails prints the settings that matter most when debugging.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	if p := cfg.ConfigPath(); p != "" {
		cmd.Printf("Config file:     %s\n", p)
	}
	if p := config.GetResolvedProjectDir(); p != "" {
		cmd.Printf("Project dir:     %s\n", p)
	}
	cmd.Printf("Output format:   %s\n", cfg.Output.DefaultFormat)
	cmd.Printf("Storage backend: %s\n", cfg.Storage.Backend)
	switch cfg.Storage.Backend {
	case "file":
		cmd.Printf("Ledger file:     %s\n", cfg.Storage.FilePath)
	case "mongo":
		cmd.Printf("Mongo database:  %s\n", cfg.Storage.MongoDatabase)
	}
	cmd.Printf("Cache backend:   %s (ttl %s)\n", cfg.Cache.Backend, cfg.CacheTTL())
	cmd.Printf("Daily goal:      %g kg\n", cfg.Goals.DailyGoal)
	cmd.Printf("Factor overrides: %d\n", len(cfg.Carbon.FactorOverrides))
	cmd.Printf("Scheduler:       %s (enabled=%t, concurrency=%d)\n",
		cfg.Scheduler.Spec, cfg.Scheduler.Enabled, cfg.Scheduler.Concurrency)
	cmd.Printf("Server address:  %s\n", cfg.Server.Addr)
}
