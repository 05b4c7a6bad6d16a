package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/ecolife/internal/config"
	"github.com/rshade/ecolife/internal/logging"
)

// EnvUser selects the ledger owner when --user is not given.
const EnvUser = "ECOLIFE_USER"

const defaultUser = "me"

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	projectDir string
	output     string
	user       string
	debug      bool
}

// NewRootCmd creates the root Cobra command for the ecolife CLI.
// It loads configuration, wires up logging and registers every subcommand.
func NewRootCmd(ver string) *cobra.Command {
	var (
		logResult *logging.LogPathResult
		flags     rootFlags
	)

	cmd := &cobra.Command{
		Use:           "ecolife",
		Short:         "Personal carbon ledger and insight engine",
		Long:          "EcoLife: record everyday activities, track their CO2e footprint and get reduction insights",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd, &flags); err != nil {
				return err
			}
			result := setupLogging(cmd, flags.debug)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default $ECOLIFE_HOME/config.yaml or ~/.ecolife/config.yaml)")
	pf.StringVar(&flags.projectDir, "project-dir", "", "project directory holding a .ecolife overlay")
	pf.StringVarP(&flags.output, "output", "o", "", "output format: table or json (default from config)")
	pf.StringVarP(&flags.user, "user", "u", "", "ledger owner (default $ECOLIFE_USER or \"me\")")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newActivityCmd(&flags),
		newStatsCmd(&flags),
		newEvaluateCmd(&flags),
		newGoalsCmd(&flags),
		newInsightsCmd(&flags),
		newAchievementsCmd(&flags),
		newFactorsCmd(&flags),
		newServeCmd(),
		newMigrateCmd(),
		newConfigCmd(),
	)

	return cmd
}

// loadConfig resolves the project directory, reads configuration and
// publishes it as the global config. Flags win over everything else.
func loadConfig(cmd *cobra.Command, flags *rootFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	wd, _ := os.Getwd()
	projectDir := config.ResolveProjectDir(ctx, flags.projectDir, wd)
	config.SetResolvedProjectDir(projectDir)

	var cfg *config.Config
	if flags.configPath != "" {
		cfg = config.Default()
		if err := cfg.Load(flags.configPath); err != nil {
			return err
		}
		cfg.ApplyEnvOverrides()
	} else {
		cfg = config.NewWithProjectDir(ctx, projectDir)
		if err := cfg.LoadError(); err != nil {
			cmd.PrintErrf("Warning: %v\n", err)
		}
	}

	if flags.output != "" {
		cfg.Output.DefaultFormat = strings.ToLower(flags.output)
	}
	switch cfg.Output.DefaultFormat {
	case config.FormatTable, config.FormatJSON:
	default:
		return fmt.Errorf("unsupported output format %q (want table or json)", cfg.Output.DefaultFormat)
	}
	config.SetGlobalConfig(cfg)
	return nil
}

// resolveUser returns the --user flag, $ECOLIFE_USER, or the default owner.
func (f *rootFlags) resolveUser() string {
	if u := strings.TrimSpace(f.user); u != "" {
		return u
	}
	if u := strings.TrimSpace(os.Getenv(EnvUser)); u != "" {
		return u
	}
	return defaultUser
}

const rootCmdExample = `  # Log a 12 km car trip for today
  ecolife activity add car 12

  # Log yesterday's electricity use
  ecolife activity add electricity 8.5 --date 2025-01-06

  # Show statistics as JSON
  ecolife stats --output json

  # Tighten the daily goal
  ecolife goals set --daily 4

  # Run the advisor and list open insights
  ecolife evaluate
  ecolife insights list

  # Start the HTTP API with the nightly refresh
  ecolife serve --addr :8080`

// newConfigCmd creates the config command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigValidateCmd())
	return cmd
}
