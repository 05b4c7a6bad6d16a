package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/ecolife/internal/advisor"
	"github.com/rshade/ecolife/internal/config"
	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/engine/cache"
)

// isolate points the global config directory at a fresh temp dir and clears
// every override variable.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	for _, env := range []string{
		config.EnvProjectDir, config.EnvLogLevel, config.EnvLogFormat, config.EnvLogFile,
		config.EnvOutputFormat, config.EnvStorageBackend, config.EnvStorageFile,
		config.EnvMongoURI, config.EnvMongoDatabase, config.EnvRedisAddr, config.EnvRedisPassword,
		config.EnvRedisDB, config.EnvServerAddr, config.EnvSchedule,
		cache.EnvCacheBackend, cache.EnvCacheDir, cache.EnvTTL,
	} {
		t.Setenv(env, "")
	}
	config.ResetGlobalConfigForTest()
	t.Cleanup(config.ResetGlobalConfigForTest)
	return home
}

func TestDefault(t *testing.T) {
	home := isolate(t)

	cfg := config.New()
	require.NoError(t, cfg.LoadError())
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "table", cfg.Output.DefaultFormat)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(home, "cache"), cfg.Cache.Directory)
	assert.Equal(t, filepath.Join(home, "ledger.json"), cfg.Storage.FilePath)
	assert.Equal(t, filepath.Join(home, "config.yaml"), cfg.ConfigPath())
	assert.InDelta(t, 150.0, cfg.Goals.MonthlyGoal, 1e-9)
	assert.InDelta(t, 21.0, cfg.Carbon.TreeAbsorptionKgPerYear, 1e-9)
	assert.Equal(t, "0 2 * * *", cfg.Scheduler.Spec)
	assert.Equal(t, cache.DefaultTTL, cfg.CacheTTL())
}

func TestNew_LoadsGlobalFile(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(`
goals:
  daily: 4
carbon:
  category_shares:
    transportation: 0.4
  factor_overrides:
    car: 0.18
cache:
  ttl: 2h
`), 0o600))

	cfg := config.New()
	require.NoError(t, cfg.LoadError())
	require.NoError(t, cfg.Validate())

	assert.InDelta(t, 4.0, cfg.Goals.DailyGoal, 1e-9)
	assert.InDelta(t, 35.0, cfg.Goals.WeeklyGoal, 1e-9, "fields absent from the file keep defaults")
	assert.Equal(t, 2*time.Hour, cfg.CacheTTL())

	shares := cfg.Shares()
	assert.InDelta(t, 0.4, shares.Of(emissions.CategoryTransportation), 1e-9)
	assert.InDelta(t, advisor.DefaultCategoryShare, shares.Of(emissions.CategoryEnergy), 1e-9)

	table, err := cfg.EmissionTable()
	require.NoError(t, err)
	f, ok := table.Lookup(emissions.ActivityCar)
	require.True(t, ok)
	assert.InDelta(t, 0.18, f.KgPerUnit, 1e-9)
}

func TestNew_BrokenGlobalFileKeepsDefaults(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte("goals: [1, 2"), 0o600))

	cfg := config.New()
	require.ErrorIs(t, cfg.LoadError(), config.ErrInvalidConfig)
	assert.InDelta(t, 5.0, cfg.Goals.DailyGoal, 1e-9)
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvStorageBackend, "mongo")
	t.Setenv(config.EnvMongoURI, "mongodb://localhost:27017")
	t.Setenv(cache.EnvCacheBackend, "redis")
	t.Setenv(config.EnvRedisAddr, "localhost:6379")
	t.Setenv(config.EnvRedisDB, "3")
	t.Setenv(cache.EnvTTL, "3600")
	t.Setenv(config.EnvLogLevel, "debug")

	cfg := config.New()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "mongo", cfg.Storage.Backend)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Storage.MongoURI)
	assert.Equal(t, "debug", cfg.Logging.Level)

	opts := cfg.CacheOptions()
	assert.Equal(t, "redis", opts.Backend)
	assert.Equal(t, time.Hour, opts.TTL)
	assert.Equal(t, 3, opts.Redis.DB)
	assert.Equal(t, "localhost:6379", opts.Redis.Addr)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ECOLIFE_SERVER_ADDR=:7070\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv(config.EnvServerAddr) })
	require.NoError(t, os.Unsetenv(config.EnvServerAddr))

	require.NoError(t, config.LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	cfg := config.New()
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	isolate(t)

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"output format", func(c *config.Config) { c.Output.DefaultFormat = "xml" }},
		{"storage backend", func(c *config.Config) { c.Storage.Backend = "postgres" }},
		{"mongo without uri", func(c *config.Config) { c.Storage.Backend = "mongo" }},
		{"cache backend", func(c *config.Config) { c.Cache.Backend = "memcached" }},
		{"redis without addr", func(c *config.Config) { c.Cache.Backend = "redis" }},
		{"file cache without dir", func(c *config.Config) {
			c.Cache.Backend = "file"
			c.Cache.Directory = ""
		}},
		{"ttl too short", func(c *config.Config) { c.Cache.TTL = "10s" }},
		{"negative goal", func(c *config.Config) { c.Goals.DailyGoal = -1 }},
		{"reduction target", func(c *config.Config) { c.Goals.ReductionTarget = 120 }},
		{"tree absorption", func(c *config.Config) { c.Carbon.TreeAbsorptionKgPerYear = 0 }},
		{"unknown share category", func(c *config.Config) {
			c.Carbon.CategoryShares = map[emissions.Category]float64{"food": 0.3}
		}},
		{"share out of range", func(c *config.Config) {
			c.Carbon.CategoryShares = map[emissions.Category]float64{emissions.CategoryWaste: 1.5}
		}},
		{"unknown factor override", func(c *config.Config) {
			c.Carbon.FactorOverrides = map[emissions.ActivityType]float64{"teleport": 1}
		}},
		{"concurrency", func(c *config.Config) { c.Scheduler.Concurrency = 0 }},
		{"cron spec", func(c *config.Config) { c.Scheduler.Spec = "every night" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	home := isolate(t)
	cfg := config.Default()
	cfg.Goals.DailyGoal = 6
	cfg.Server.AllowedOrigins = []string{"https://ecolife.example"}

	path := filepath.Join(home, "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded := config.Default()
	require.NoError(t, loaded.Load(path))
	assert.InDelta(t, 6.0, loaded.Goals.DailyGoal, 1e-9)
	assert.Equal(t, []string{"https://ecolife.example"}, loaded.Server.AllowedOrigins)
	require.NoError(t, loaded.Validate())
}

func TestOpenCache(t *testing.T) {
	isolate(t)
	cfg := config.Default()
	cfg.Cache.Backend = "file"
	cfg.Cache.Directory = t.TempDir()

	c, err := cfg.OpenCache(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &cache.FileStore{}, c)
}
