// Package config loads EcoLife configuration.
//
// Values are resolved in order: built-in defaults, the global file
// (~/.ecolife/config.yaml, or $ECOLIFE_HOME/config.yaml), an optional
// project-local overlay merged section by section, a .env file, and finally
// ECOLIFE_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/rshade/ecolife/internal/advisor"
	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/engine/batch"
	"github.com/rshade/ecolife/internal/engine/cache"
	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/stats"
	"github.com/rshade/ecolife/internal/store"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	defaultConfigFile = "config.yaml"
	defaultLedgerFile = "ledger.json"
	outputTypeFile    = "file"

	// Output formats.
	FormatTable = "table"
	FormatJSON  = "json"

	// DefaultSchedule runs the refresh every night at 02:00.
	DefaultSchedule = "0 2 * * *"

	// DefaultServerAddr is the HTTP listen address.
	DefaultServerAddr = ":8080"
)

// Environment variables read by ApplyEnvOverrides.
const (
	EnvHome           = "ECOLIFE_HOME"
	EnvProjectDir     = "ECOLIFE_PROJECT_DIR"
	EnvLogLevel       = "ECOLIFE_LOG_LEVEL"
	EnvLogFormat      = "ECOLIFE_LOG_FORMAT"
	EnvLogFile        = "ECOLIFE_LOG_FILE"
	EnvOutputFormat   = "ECOLIFE_OUTPUT_FORMAT"
	EnvStorageBackend = "ECOLIFE_STORAGE_BACKEND"
	EnvStorageFile    = "ECOLIFE_STORAGE_FILE"
	EnvMongoURI       = "ECOLIFE_MONGO_URI"
	EnvMongoDatabase  = "ECOLIFE_MONGO_DATABASE"
	EnvRedisAddr      = "ECOLIFE_REDIS_ADDR"
	EnvRedisPassword  = "ECOLIFE_REDIS_PASSWORD"
	EnvRedisDB        = "ECOLIFE_REDIS_DB"
	EnvServerAddr     = "ECOLIFE_SERVER_ADDR"
	EnvSchedule       = "ECOLIFE_SCHEDULE"
)

// Config is the complete EcoLife configuration.
type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   store.Config    `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	Goals     goals.Goals     `yaml:"goals"`
	Carbon    CarbonConfig    `yaml:"carbon"`
	Server    ServerConfig    `yaml:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	configPath string
	loadErr    error
}

// OutputConfig controls CLI rendering.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Precision     int    `yaml:"precision"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// CacheConfig selects the statistics cache.
type CacheConfig struct {
	Backend       string `yaml:"backend"`
	Directory     string `yaml:"directory"`
	TTL           string `yaml:"ttl"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

// CarbonConfig holds reference constants, category shares of the monthly
// goal and emission factor overrides.
type CarbonConfig struct {
	stats.Params `yaml:",inline"`

	CategoryShares  map[emissions.Category]float64     `yaml:"category_shares,omitempty"`
	FactorOverrides map[emissions.ActivityType]float64 `yaml:"factor_overrides,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SchedulerConfig configures the nightly refresh.
type SchedulerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Spec        string `yaml:"spec"`
	Concurrency int    `yaml:"concurrency"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cacheDir, ledgerFile := "", ""
	if dir, err := GetConfigDir(); err == nil {
		cacheDir = filepath.Join(dir, "cache")
		ledgerFile = filepath.Join(dir, defaultLedgerFile)
	}
	return &Config{
		Output:  OutputConfig{DefaultFormat: FormatTable, Precision: 2},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Storage: store.Config{
			Backend:       store.BackendFile,
			FilePath:      ledgerFile,
			MongoDatabase: store.DefaultMongoDatabase,
		},
		Cache: CacheConfig{
			Backend:     cache.BackendMemory,
			Directory:   cacheDir,
			TTL:         cache.DefaultTTL.String(),
			RedisPrefix: cache.DefaultRedisKeyPrefix,
		},
		Goals:  goals.Defaults(),
		Carbon: CarbonConfig{Params: stats.DefaultParams()},
		Server: ServerConfig{Addr: DefaultServerAddr, AllowedOrigins: []string{"*"}},
		Scheduler: SchedulerConfig{
			Enabled:     true,
			Spec:        DefaultSchedule,
			Concurrency: batch.DefaultConcurrency,
		},
	}
}

// New returns defaults overlaid with the global file and the environment.
// A broken global file is reported by LoadError; defaults are kept.
func New() *Config {
	cfg := newBase()
	cfg.ApplyEnvOverrides()
	return cfg
}

func newBase() *Config {
	cfg := Default()
	dir, err := GetConfigDir()
	if err != nil {
		cfg.loadErr = err
		return cfg
	}
	cfg.configPath = filepath.Join(dir, defaultConfigFile)
	if _, statErr := os.Stat(cfg.configPath); statErr == nil {
		cfg.loadErr = cfg.Load(cfg.configPath)
	}
	return cfg
}

// ConfigPath returns the global config file location.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// LoadError returns the error from reading the global file, if any.
func (c *Config) LoadError() error {
	return c.loadErr
}

// Load reads path onto c. Fields absent from the file keep their values.
func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parsing %s: %w", ErrInvalidConfig, path, err)
	}
	return nil
}

// Save writes c to path as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnvOverrides replaces fields whose ECOLIFE_* variable is set.
func (c *Config) ApplyEnvOverrides() {
	setString := func(env string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
	setString(EnvLogLevel, &c.Logging.Level)
	setString(EnvLogFormat, &c.Logging.Format)
	setString(EnvLogFile, &c.Logging.File)
	setString(EnvOutputFormat, &c.Output.DefaultFormat)
	setString(EnvStorageBackend, &c.Storage.Backend)
	setString(EnvStorageFile, &c.Storage.FilePath)
	setString(EnvMongoURI, &c.Storage.MongoURI)
	setString(EnvMongoDatabase, &c.Storage.MongoDatabase)
	setString(cache.EnvCacheBackend, &c.Cache.Backend)
	setString(cache.EnvCacheDir, &c.Cache.Directory)
	setString(cache.EnvTTL, &c.Cache.TTL)
	setString(EnvRedisAddr, &c.Cache.RedisAddr)
	setString(EnvRedisPassword, &c.Cache.RedisPassword)
	setString(EnvServerAddr, &c.Server.Addr)
	setString(EnvSchedule, &c.Scheduler.Spec)

	if v := os.Getenv(EnvRedisDB); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Cache.RedisDB = db
		}
	}
}

// fillDefaults restores defaults for fields a section overlay left empty.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Output.DefaultFormat == "" {
		c.Output.DefaultFormat = d.Output.DefaultFormat
	}
	if c.Output.Precision == 0 {
		c.Output.Precision = d.Output.Precision
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.FilePath == "" {
		c.Storage.FilePath = d.Storage.FilePath
	}
	if c.Storage.MongoDatabase == "" {
		c.Storage.MongoDatabase = d.Storage.MongoDatabase
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = d.Cache.Backend
	}
	if c.Cache.Directory == "" {
		c.Cache.Directory = d.Cache.Directory
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = d.Cache.TTL
	}
	if c.Cache.RedisPrefix == "" {
		c.Cache.RedisPrefix = d.Cache.RedisPrefix
	}
	fillFloat(&c.Goals.DailyGoal, d.Goals.DailyGoal)
	fillFloat(&c.Goals.WeeklyGoal, d.Goals.WeeklyGoal)
	fillFloat(&c.Goals.MonthlyGoal, d.Goals.MonthlyGoal)
	fillFloat(&c.Goals.YearlyGoal, d.Goals.YearlyGoal)
	fillFloat(&c.Carbon.TreeAbsorptionKgPerYear, d.Carbon.TreeAbsorptionKgPerYear)
	fillFloat(&c.Carbon.GlobalDailyAverageKg, d.Carbon.GlobalDailyAverageKg)
	fillFloat(&c.Carbon.NationalDailyAverageKg, d.Carbon.NationalDailyAverageKg)
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Scheduler.Spec == "" {
		c.Scheduler.Spec = d.Scheduler.Spec
	}
	if c.Scheduler.Concurrency == 0 {
		c.Scheduler.Concurrency = d.Scheduler.Concurrency
	}
}

func fillFloat(dst *float64, def float64) {
	if *dst == 0 {
		*dst = def
	}
}

// Validate checks every section and returns the first problem wrapped in
// ErrInvalidConfig.
func (c *Config) Validate() error {
	switch c.Output.DefaultFormat {
	case FormatTable, FormatJSON:
	default:
		return fmt.Errorf("%w: output.default_format must be table or json, got %q",
			ErrInvalidConfig, c.Output.DefaultFormat)
	}

	switch strings.ToLower(c.Storage.Backend) {
	case store.BackendMemory, store.BackendFile:
	case store.BackendMongo:
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("%w: storage.mongo_uri is required for the mongo backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage.backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	switch strings.ToLower(c.Cache.Backend) {
	case cache.BackendMemory, cache.BackendNone:
	case cache.BackendFile:
		if c.Cache.Directory == "" {
			return fmt.Errorf("%w: cache.directory is required for the file backend", ErrInvalidConfig)
		}
	case cache.BackendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("%w: cache.redis_addr is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown cache.backend %q", ErrInvalidConfig, c.Cache.Backend)
	}
	if _, err := cache.ParseTTL(c.Cache.TTL); err != nil {
		return fmt.Errorf("%w: cache.ttl: %w", ErrInvalidConfig, err)
	}

	if err := c.Goals.Validate(); err != nil {
		return fmt.Errorf("%w: goals: %w", ErrInvalidConfig, err)
	}

	if err := c.validateCarbon(); err != nil {
		return err
	}

	if c.Scheduler.Concurrency < batch.MinConcurrency || c.Scheduler.Concurrency > batch.MaxConcurrency {
		return fmt.Errorf("%w: scheduler.concurrency must be between %d and %d, got %d",
			ErrInvalidConfig, batch.MinConcurrency, batch.MaxConcurrency, c.Scheduler.Concurrency)
	}
	if _, err := cron.ParseStandard(c.Scheduler.Spec); err != nil {
		return fmt.Errorf("%w: scheduler.spec: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validateCarbon() error {
	p := c.Carbon.Params
	if p.TreeAbsorptionKgPerYear <= 0 || p.GlobalDailyAverageKg <= 0 || p.NationalDailyAverageKg <= 0 {
		return fmt.Errorf("%w: carbon reference values must be positive", ErrInvalidConfig)
	}
	for cat, share := range c.Carbon.CategoryShares {
		if !cat.IsValid() {
			return fmt.Errorf("%w: carbon.category_shares: unknown category %q", ErrInvalidConfig, cat)
		}
		if share <= 0 || share > 1 {
			return fmt.Errorf("%w: carbon.category_shares.%s must be in (0, 1], got %g", ErrInvalidConfig, cat, share)
		}
	}
	if _, err := c.EmissionTable(); err != nil {
		return fmt.Errorf("%w: carbon.factor_overrides: %w", ErrInvalidConfig, err)
	}
	return nil
}

// EmissionTable returns the default factor table with overrides applied.
func (c *Config) EmissionTable() (emissions.Table, error) {
	if len(c.Carbon.FactorOverrides) == 0 {
		return emissions.DefaultTable(), nil
	}
	return emissions.DefaultTable().WithOverrides(c.Carbon.FactorOverrides)
}

// Shares returns the configured category shares over the defaults.
func (c *Config) Shares() advisor.Shares {
	shares := advisor.DefaultShares()
	for cat, v := range c.Carbon.CategoryShares {
		shares[cat] = v
	}
	return shares
}

// CacheTTL returns the parsed cache TTL, or cache.DefaultTTL when invalid.
func (c *Config) CacheTTL() time.Duration {
	d, err := cache.ParseTTL(c.Cache.TTL)
	if err != nil {
		return cache.DefaultTTL
	}
	return d
}

// CacheOptions translates the cache section for cache.Open.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:   c.Cache.Backend,
		Directory: c.Cache.Directory,
		TTL:       c.CacheTTL(),
		Redis: cache.RedisConfig{
			Addr:      c.Cache.RedisAddr,
			Password:  c.Cache.RedisPassword,
			DB:        c.Cache.RedisDB,
			KeyPrefix: c.Cache.RedisPrefix,
		},
	}
}

// OpenCache builds the configured statistics cache.
func (c *Config) OpenCache(ctx context.Context) (cache.Store, error) {
	return cache.Open(ctx, c.CacheOptions())
}
