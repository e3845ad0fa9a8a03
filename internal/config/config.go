// Package config loads collector settings from defaults, an optional config
// file, COLLECTOR_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. COLLECTOR_API_TIMEOUT.
const EnvPrefix = "COLLECTOR"

// Config holds all collector settings.
type Config struct {
	Input    string `mapstructure:"input"`
	IDColumn string `mapstructure:"id_column" validate:"required"`
	Dedupe   bool   `mapstructure:"dedupe"`

	Mode          string `mapstructure:"mode" validate:"oneof=checkpointed streaming"`
	BatchSize     int    `mapstructure:"batch_size" validate:"min=1"`
	Workers       int    `mapstructure:"workers" validate:"min=0"`
	WorkersPerCPU int    `mapstructure:"workers_per_cpu" validate:"min=0"`
	ProgressEvery int    `mapstructure:"progress_every" validate:"min=0"`

	API        APIConfig        `mapstructure:"api"`
	Output     OutputConfig     `mapstructure:"output"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// APIConfig configures the product API client.
type APIConfig struct {
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	UserAgent   string        `mapstructure:"user_agent" validate:"required"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=1"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
}

// OutputConfig locates local output.
type OutputConfig struct {
	Dir      string `mapstructure:"dir" validate:"required"`
	ErrorDir string `mapstructure:"error_dir"`
}

// StorageConfig selects where product batches go.
type StorageConfig struct {
	Type     string `mapstructure:"type" validate:"oneof=fs s3 gcs"`
	Bucket   string `mapstructure:"bucket" validate:"required_if=Type s3,required_if=Type gcs"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// CheckpointConfig selects the checkpoint backend.
type CheckpointConfig struct {
	Backend  string `mapstructure:"backend" validate:"oneof=file redis"`
	Path     string `mapstructure:"path"`
	RedisKey string `mapstructure:"redis_key"`
}

// RedisConfig is shared by the redis checkpoint backend and the product cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

// CacheConfig enables the Redis product cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

// MetricsConfig configures the Prometheus endpoint; empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers every key with its default value. Keys must be known to
// viper for environment overrides to apply on Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input", "id_product.csv")
	v.SetDefault("id_column", "product_id")
	v.SetDefault("dedupe", false)

	v.SetDefault("mode", "checkpointed")
	v.SetDefault("batch_size", 1000)
	v.SetDefault("workers", 40)
	v.SetDefault("workers_per_cpu", 0)
	v.SetDefault("progress_every", 100)

	v.SetDefault("api.base_url", "https://api.tiki.vn/product-detail/api/v1/products")
	v.SetDefault("api.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) "+
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.max_attempts", 5)
	v.SetDefault("api.retry_delay", "2s")

	v.SetDefault("output.dir", "output_raw")
	v.SetDefault("output.error_dir", "")

	v.SetDefault("storage.type", "fs")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")

	v.SetDefault("checkpoint.backend", "file")
	v.SetDefault("checkpoint.path", "")
	v.SetDefault("checkpoint.redis_key", "collector:checkpoint")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("metrics.addr", "")
}

// Load reads configuration into a Config. configFile may be empty, in which
// case collector.yaml is looked up in the working directory and ignored when
// absent. Flags must be bound to v before calling Load.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("collector")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDerived fills paths that default relative to the output directory.
func (c *Config) applyDerived() {
	if c.Output.ErrorDir == "" {
		c.Output.ErrorDir = c.Output.Dir + "/error"
	}
	if c.Checkpoint.Path == "" {
		c.Checkpoint.Path = c.Output.Dir + "/checkpoint/checkpoint.txt"
	}
	c.Mode = strings.ToLower(c.Mode)
	c.Storage.Type = strings.ToLower(c.Storage.Type)
	c.Log.Level = strings.ToLower(c.Log.Level)
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if (c.Checkpoint.Backend == "redis" || c.Cache.Enabled) && c.Redis.Addr == "" {
		return errors.New("invalid config: redis.addr is required for the redis checkpoint backend or the cache")
	}
	return nil
}

// NeedsRedis reports whether a Redis connection must be opened.
func (c *Config) NeedsRedis() bool {
	return c.Checkpoint.Backend == "redis" || c.Cache.Enabled
}
