// Package config loads matcher settings from matcher.yaml, MATCHER_*
// environment variables and the libpq PG* variables.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gnaf-matcher/internal/db"
)

// Config holds the full application configuration.
type Config struct {
	Reference ReferenceConfig `yaml:"reference" mapstructure:"reference"`
	Customer  CustomerConfig  `yaml:"customer" mapstructure:"customer"`
	Resolver  ResolverConfig  `yaml:"resolver" mapstructure:"resolver"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Debug     bool            `yaml:"debug" mapstructure:"debug"`
}

// ReferenceConfig points at the G-NAF reference database.
type ReferenceConfig struct {
	Host        string        `yaml:"host" mapstructure:"host"`
	Port        string        `yaml:"port" mapstructure:"port"`
	User        string        `yaml:"user" mapstructure:"user"`
	Password    string        `yaml:"password" mapstructure:"password"`
	Database    string        `yaml:"database" mapstructure:"database"`
	SSLMode     string        `yaml:"sslmode" mapstructure:"sslmode"`
	DatabaseURL string        `yaml:"database_url" mapstructure:"database_url"`
	Pool        db.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// DSN returns DatabaseURL when set, otherwise a keyword string built from
// the discrete settings.
func (c ReferenceConfig) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return db.Params{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Database,
		SSLMode:  c.SSLMode,
	}.DSN()
}

// CustomerConfig points at the customer database.
type CustomerConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ResolverConfig tunes the per-address resolution.
type ResolverConfig struct {
	CandidateCeiling     int           `yaml:"candidate_ceiling" mapstructure:"candidate_ceiling"`
	FuzzyMaxDistance     int           `yaml:"fuzzy_max_distance" mapstructure:"fuzzy_max_distance"`
	CandidateParallelism int           `yaml:"candidate_parallelism" mapstructure:"candidate_parallelism"`
	LookupBudget         time.Duration `yaml:"lookup_budget" mapstructure:"lookup_budget"`
	MinLookupTimeout     time.Duration `yaml:"min_lookup_timeout" mapstructure:"min_lookup_timeout"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Size                 int     `yaml:"size" mapstructure:"size"`
	Workers              int     `yaml:"workers" mapstructure:"workers"`
	MaxConcurrentLookups int64   `yaml:"max_concurrent_lookups" mapstructure:"max_concurrent_lookups"`
	LookupsPerSecond     float64 `yaml:"lookups_per_second" mapstructure:"lookups_per_second"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var libpqEnv = map[string]string{
	"reference.host":     "PGHOST",
	"reference.port":     "PGPORT",
	"reference.user":     "PGUSER",
	"reference.password": "PGPASSWORD",
	"reference.database": "PGDATABASE",
	"reference.sslmode":  "PGSSLMODE",
}

// envKey is the MATCHER_ variable AutomaticEnv would read for key.
func envKey(key string) string {
	return "MATCHER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load reads configuration from file and environment. An empty path
// searches the working directory for an optional matcher.yaml; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("matcher")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("MATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("reference.host", "localhost")
	v.SetDefault("reference.port", "5432")
	v.SetDefault("reference.user", "gnaf")
	v.SetDefault("reference.password", "")
	v.SetDefault("reference.database", "gnaf")
	v.SetDefault("reference.sslmode", "disable")
	v.SetDefault("reference.database_url", "")
	v.SetDefault("reference.pool.max_conns", 0)
	v.SetDefault("reference.pool.min_conns", 0)
	v.SetDefault("customer.driver", "postgres")
	v.SetDefault("customer.database_url", "")
	v.SetDefault("resolver.candidate_ceiling", 50)
	v.SetDefault("resolver.fuzzy_max_distance", 3)
	v.SetDefault("resolver.candidate_parallelism", 8)
	v.SetDefault("resolver.lookup_budget", "30s")
	v.SetDefault("resolver.min_lookup_timeout", "1s")
	v.SetDefault("batch.size", 100)
	v.SetDefault("batch.workers", 8)
	v.SetDefault("batch.max_concurrent_lookups", 32)
	v.SetDefault("batch.lookups_per_second", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("debug", false)

	// libpq variables back the reference settings when no MATCHER_ value is set.
	for key, pg := range libpqEnv {
		if err := v.BindEnv(key, envKey(key), pg); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", pg)
		}
	}
	if err := v.BindEnv("debug", envKey("debug"), "DEBUG"); err != nil {
		return nil, eris.Wrap(err, "config: bind DEBUG")
	}

	// Read config file (optional unless named)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the matcher cannot run with.
func (c *Config) Validate() error {
	switch c.Customer.Driver {
	case "postgres", "sqlite":
	default:
		return eris.Errorf("config: customer.driver must be postgres or sqlite, got %q", c.Customer.Driver)
	}
	if c.Resolver.CandidateCeiling <= 0 {
		return eris.New("config: resolver.candidate_ceiling must be positive")
	}
	if c.Resolver.CandidateParallelism <= 0 {
		return eris.New("config: resolver.candidate_parallelism must be positive")
	}
	if c.Resolver.MinLookupTimeout <= 0 || c.Resolver.LookupBudget < c.Resolver.MinLookupTimeout {
		return eris.New("config: resolver.lookup_budget must be at least resolver.min_lookup_timeout")
	}
	if c.Batch.Size <= 0 || c.Batch.Workers <= 0 {
		return eris.New("config: batch.size and batch.workers must be positive")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
