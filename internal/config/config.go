package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/repairhub/pricing-engine/internal/catalog"
	"github.com/repairhub/pricing-engine/internal/matching"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig     `yaml:"store" mapstructure:"store"`
	Log      LogConfig       `yaml:"log" mapstructure:"log"`
	Server   ServerConfig    `yaml:"server" mapstructure:"server"`
	Matching matching.Config `yaml:"matching" mapstructure:"matching"`
	Classify ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Retry    RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Circuit  CircuitConfig   `yaml:"circuit" mapstructure:"circuit"`
}

// StoreConfig configures the catalog backend.
type StoreConfig struct {
	Driver      string             `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string             `yaml:"database_url" mapstructure:"database_url"`
	Pool        catalog.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst       int      `yaml:"burst" mapstructure:"burst"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// ClassifyConfig points at an optional tier policy file. Empty means the
// built-in thresholds.
type ClassifyConfig struct {
	PolicyPath string `yaml:"policy_path" mapstructure:"policy_path"`
}

// RetryConfig configures catalog read retries.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures the catalog circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REPAIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	def := matching.DefaultConfig()
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "pricing.db")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.burst", 40)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("matching.max_concurrency", def.MaxConcurrency)
	v.SetDefault("matching.query_timeout", def.QueryTimeout)
	v.SetDefault("matching.radius_km", def.RadiusKm)
	v.SetDefault("matching.include_tier_only", false)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 50)
	v.SetDefault("retry.max_backoff_ms", 500)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateLimit <= 0 || c.Server.Burst <= 0 {
			errs = append(errs, "server.rate_limit and server.burst must be > 0")
		}
		errs = append(errs, c.validateMatching()...)
	case "query":
		errs = append(errs, c.validateMatching()...)
	case "migrate", "import":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateMatching() []string {
	var errs []string
	if c.Matching.MaxConcurrency < 1 || c.Matching.MaxConcurrency > 64 {
		errs = append(errs, "matching.max_concurrency must be between 1 and 64")
	}
	if c.Matching.RadiusKm <= 0 {
		errs = append(errs, "matching.radius_km must be > 0")
	}
	if c.Matching.QueryTimeout < 0 {
		errs = append(errs, "matching.query_timeout must be >= 0")
	}
	return errs
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
