package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/ecolife/internal/advisor"
	"github.com/rshade/ecolife/internal/cli"
	"github.com/rshade/ecolife/internal/config"
	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/engine"
	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/ledger"
	"github.com/rshade/ecolife/internal/migration"
)

// setupCLITest isolates the CLI from the real home directory, working
// directory and environment, and returns the ECOLIFE_HOME it uses.
func setupCLITest(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvProjectDir, "")
	t.Setenv(config.EnvOutputFormat, "")
	t.Setenv(config.EnvStorageBackend, "")
	t.Setenv(config.EnvStorageFile, "")
	t.Setenv(cli.EnvUser, "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(home))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Cleanup(func() {
		config.ResetGlobalConfigForTest()
		config.SetResolvedProjectDir("")
	})
	return home
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func runJSON[T any](t *testing.T, args ...string) T {
	t.Helper()
	out, err := runCLI(t, append(args, "--output", "json")...)
	require.NoError(t, err, out)
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestActivityLifecycle(t *testing.T) {
	home := setupCLITest(t)

	a := runJSON[ledger.Activity](t, "activity", "add", "car", "10", "--date", "2024-06-15", "--notes", "commute")
	assert.Equal(t, "me", a.UserID)
	assert.Equal(t, emissions.CategoryTransportation, a.Category)
	assert.InDelta(t, 2.1, a.EmissionsCO2, 1e-9)
	assert.Equal(t, "2024-06-15", a.Date.Format("2006-01-02"))

	_, err := os.Stat(filepath.Join(home, "ledger.json"))
	require.NoError(t, err, "the default ledger lives in ECOLIFE_HOME")

	out, err := runCLI(t, "activity", "list")
	require.NoError(t, err)
	assert.Contains(t, out, a.ID)
	assert.Contains(t, out, "2.10 kg")
	assert.Contains(t, out, "1 activities, 2.10 kg CO2e")

	out, err = runCLI(t, "activity", "note", a.ID, "school run")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated notes on activity "+a.ID)

	_, err = runCLI(t, "activity", "verify", a.ID)
	require.NoError(t, err)

	acts := runJSON[[]ledger.Activity](t, "activity", "list")
	require.Len(t, acts, 1)
	assert.Equal(t, "school run", acts[0].Notes)
	assert.True(t, acts[0].Verified)

	_, err = runCLI(t, "activity", "verify", a.ID, "--unset")
	require.NoError(t, err)
	acts = runJSON[[]ledger.Activity](t, "activity", "list")
	assert.False(t, acts[0].Verified)

	out, err = runCLI(t, "activity", "delete", a.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted activity "+a.ID)

	out, err = runCLI(t, "activity", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No activities recorded.")

	_, err = runCLI(t, "activity", "delete", a.ID)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestActivityAdd_Rejects(t *testing.T) {
	setupCLITest(t)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "unknown type", args: []string{"teleport", "1"}, want: emissions.ErrInvalidActivityType},
		{name: "not a number", args: []string{"car", "ten"}, want: emissions.ErrInvalidValue},
		{name: "negative", args: []string{"--", "car", "-3"}, want: emissions.ErrInvalidValue},
		{name: "wrong unit", args: []string{"car", "3", "--unit", "kWh"}, want: emissions.ErrInvalidUnit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, append([]string{"activity", "add"}, tt.args...)...)
			require.ErrorIs(t, err, tt.want)
		})
	}

	acts := runJSON[[]ledger.Activity](t, "activity", "list")
	assert.Empty(t, acts, "rejected submissions are not persisted")
}

func TestActivityList_Range(t *testing.T) {
	setupCLITest(t)
	runJSON[ledger.Activity](t, "activity", "add", "electricity", "10", "--date", "2024-06-01")
	runJSON[ledger.Activity](t, "activity", "add", "electricity", "10", "--date", "2024-06-10")

	acts := runJSON[[]ledger.Activity](t, "activity", "list", "--from", "2024-06-05", "--to", "2024-06-10")
	require.Len(t, acts, 1)
	assert.Equal(t, "2024-06-10", acts[0].Date.Format("2006-01-02"))

	_, err := runCLI(t, "activity", "list", "--from", "2024-06-10", "--to", "2024-06-01")
	require.Error(t, err)

	_, err = runCLI(t, "activity", "list", "--from", "last week")
	require.Error(t, err)
}

func TestActivityBrowse_RequiresTerminal(t *testing.T) {
	setupCLITest(t)

	_, err := runCLI(t, "activity", "browse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interactive terminal")
}

func TestMigrate(t *testing.T) {
	home := setupCLITest(t)

	runJSON[ledger.Activity](t, "activity", "add", "car", "10", "--date", "2024-06-15")
	runJSON[ledger.Activity](t, "--user", "sam", "activity", "add", "flight", "20", "--date", "2024-06-16")

	backup := filepath.Join(home, "backup.json")
	report := runJSON[migration.Report](t, "migrate", "--to-backend", "file", "--to-file", backup)
	assert.Equal(t, []string{"me", "sam"}, report.Users)
	assert.Equal(t, 2, report.Activities)

	out, err := runCLI(t, "migrate", "--to-backend", "file", "--to-file", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated 2 users to file storage")
	assert.Contains(t, out, "0 copied, 2 already present")

	t.Setenv(config.EnvStorageFile, backup)
	acts := runJSON[[]ledger.Activity](t, "--user", "sam", "activity", "list")
	require.Len(t, acts, 1)
	assert.Equal(t, emissions.ActivityFlight, acts[0].ActivityType)

	_, err = runCLI(t, "migrate", "--to-backend", "file", "--to-file", backup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same as the configured storage")

	_, err = runCLI(t, "migrate", "--to-backend", "file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--to-file is required")
}

func TestActivityImport(t *testing.T) {
	home := setupCLITest(t)

	csvPath := filepath.Join(home, "week.csv")
	require.NoError(t, os.WriteFile(csvPath,
		[]byte("activityType,value,date,notes\ncar,10,2024-06-15,commute\nrecycling,5,2024-06-15,\n"), 0o600))

	out, err := runCLI(t, "activity", "import", csvPath, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "2 activities would be imported")
	assert.Empty(t, runJSON[[]ledger.Activity](t, "activity", "list"))

	out, err = runCLI(t, "activity", "import", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 of 2 activities: 1.10 kg CO2e")

	acts := runJSON[[]ledger.Activity](t, "activity", "list")
	require.Len(t, acts, 2)
	assert.Equal(t, "commute", acts[0].Notes)

	badPath := filepath.Join(home, "bad.json")
	require.NoError(t, os.WriteFile(badPath,
		[]byte(`[{"activityType":"bike","value":3},{"activityType":"teleport","value":1}]`), 0o600))
	out, err = runCLI(t, "activity", "import", badPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 activities were not imported")
	assert.Contains(t, out, "Imported 1 of 2 activities")

	_, err = runCLI(t, "activity", "import", filepath.Join(home, "week.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported import format")
}

func TestUserFlag(t *testing.T) {
	setupCLITest(t)
	runJSON[ledger.Activity](t, "--user", "bob", "activity", "add", "bike", "5")

	assert.Empty(t, runJSON[[]ledger.Activity](t, "activity", "list", "--user", "alice"))
	assert.Len(t, runJSON[[]ledger.Activity](t, "activity", "list", "-u", "bob"), 1)

	t.Setenv(cli.EnvUser, "bob")
	assert.Len(t, runJSON[[]ledger.Activity](t, "activity", "list"), 1)
}

func TestStats(t *testing.T) {
	setupCLITest(t)

	out, err := runCLI(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Carbon footprint for me")
	assert.Contains(t, out, "No activities recorded yet.")

	runJSON[ledger.Activity](t, "activity", "add", "car", "10", "--date", "2024-06-15")
	runJSON[ledger.Activity](t, "activity", "add", "recycling", "5", "--date", "2024-06-15")

	sum := runJSON[engine.Summary](t, "stats")
	assert.InDelta(t, 1.1, sum.Statistics.TotalEmissions, 1e-9)
	assert.Equal(t, 2, sum.Statistics.ActivityCount)
	assert.InDelta(t, -1.0, sum.Statistics.CategoryEmissions(emissions.CategoryWaste), 1e-9)
	assert.InDelta(t, goals.DefaultDailyGoal, sum.Goals.DailyGoal, 1e-9)

	sum = runJSON[engine.Summary](t, "stats", "--recompute")
	assert.InDelta(t, 1.1, sum.Statistics.TotalEmissions, 1e-9)

	out, err = runCLI(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "1.10 kg")
	assert.Contains(t, out, "By category")
	assert.Contains(t, out, "transportation")
}

func TestGoals(t *testing.T) {
	setupCLITest(t)

	g := runJSON[goals.Goals](t, "goals", "show")
	assert.InDelta(t, goals.DefaultDailyGoal, g.DailyGoal, 1e-9)

	g = runJSON[goals.Goals](t, "goals", "set", "--daily", "3", "--reduction", "25")
	assert.InDelta(t, 3.0, g.DailyGoal, 1e-9)
	assert.InDelta(t, 25.0, g.ReductionTarget, 1e-9)
	assert.InDelta(t, goals.DefaultWeeklyGoal, g.WeeklyGoal, 1e-9)

	out, err := runCLI(t, "goals", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Goals for me")
	assert.Contains(t, out, "3.00 kg")

	_, err = runCLI(t, "goals", "set")
	require.ErrorIs(t, err, goals.ErrInvalidGoals)

	_, err = runCLI(t, "goals", "set", "--daily", "-1")
	require.ErrorIs(t, err, goals.ErrInvalidGoals)
}

func TestEvaluateInsightsAchievements(t *testing.T) {
	setupCLITest(t)
	runJSON[ledger.Activity](t, "activity", "add", "car", "100")

	ev := runJSON[advisor.Evaluation](t, "evaluate")
	assert.Contains(t, ev.NewlyUnlocked, advisor.BadgeFirstStep)

	out, err := runCLI(t, "evaluate")
	require.NoError(t, err)
	assert.Contains(t, out, "open insights")

	insights := runJSON[[]advisor.Insight](t, "insights", "list")
	require.NotEmpty(t, insights)
	assert.Equal(t, emissions.CategoryTransportation, insights[0].Category)

	out, err = runCLI(t, "insights", "adopt", insights[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Adopted insight "+insights[0].ID)

	open := runJSON[[]advisor.Insight](t, "insights", "list")
	assert.Len(t, open, len(insights)-1)
	all := runJSON[[]advisor.Insight](t, "insights", "list", "--all")
	assert.Len(t, all, len(insights))

	_, err = runCLI(t, "insights", "adopt", "missing")
	require.ErrorIs(t, err, advisor.ErrInsightNotFound)

	out, err = runCLI(t, "achievements")
	require.NoError(t, err)
	assert.Contains(t, out, string(advisor.BadgeFirstStep))
	assert.Contains(t, out, "1 of 10 unlocked")
}

func TestFactors(t *testing.T) {
	setupCLITest(t)

	out, err := runCLI(t, "factors")
	require.NoError(t, err)
	assert.Contains(t, out, "recycling")
	assert.Contains(t, out, "-0.200")

	factors := runJSON[[]emissions.Factor](t, "factors")
	assert.Len(t, factors, 14)
}

func TestFactors_ConfigOverride(t *testing.T) {
	home := setupCLITest(t)
	cfgPath := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("carbon:\n  factor_overrides:\n    car: 0.3\n"), 0o600))

	factors := runJSON[[]emissions.Factor](t, "--config", cfgPath, "factors")
	for _, f := range factors {
		if f.Type == emissions.ActivityCar {
			assert.InDelta(t, 0.3, f.KgPerUnit, 1e-9)
		}
	}

	a := runJSON[ledger.Activity](t, "--config", cfgPath, "activity", "add", "car", "10")
	assert.InDelta(t, 3.0, a.EmissionsCO2, 1e-9)
}

func TestOutputFlagRejectsUnknownFormat(t *testing.T) {
	setupCLITest(t)
	_, err := runCLI(t, "factors", "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestConfigValidate(t *testing.T) {
	home := setupCLITest(t)

	out, err := runCLI(t, "config", "validate", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
	assert.Contains(t, out, "Storage backend: file")

	bad := filepath.Join(home, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("storage:\n  backend: floppy\n"), 0o600))
	_, err = runCLI(t, "--config", bad, "config", "validate")
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte("goals: [not, a, map]\n"), 0o600))
	_, err = runCLI(t, "config", "validate")
	require.Error(t, err)
}
