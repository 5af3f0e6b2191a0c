package config

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	dErrors "formcheck/pkg/domain-errors"
)

// EnvPrefix prefixes every environment variable, e.g.
// FORMCHECK_LOOKUP_TIMEOUT=2s sets lookup.timeout.
const EnvPrefix = "FORMCHECK"

// Cache backends.
const (
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CachePostgres = "postgres"
	CacheNone     = "none"
)

// Config is the full runtime configuration.
type Config struct {
	Lookup   LookupConfig   `mapstructure:"lookup"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Server   Server         `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Messages MessagesConfig `mapstructure:"messages"`
	Form     FormConfig     `mapstructure:"form"`
}

// LookupConfig configures the postal code service.
type LookupConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// Consecutive failures before the circuit opens, and how long it stays
	// open before a probe.
	BreakerThreshold int           `mapstructure:"breaker_threshold" validate:"gte=1"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown" validate:"gt=0"`
}

// CacheConfig selects where resolved addresses are kept.
type CacheConfig struct {
	Backend string        `mapstructure:"backend" validate:"oneof=memory redis postgres none"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size" validate:"gte=1"`
	MinIdleConns int           `mapstructure:"min_idle_conns" validate:"gte=0"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// PostgresConfig holds database settings for the postgres cache backend.
type PostgresConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// Server captures HTTP server level configuration.
type Server struct {
	// Addr serves /healthz and /metrics. Empty disables the server.
	Addr string `mapstructure:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
	// File, when set, receives rotated logs instead of stderr.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// MessagesConfig points at an operator-supplied message catalog.
type MessagesConfig struct {
	Catalog string `mapstructure:"catalog" validate:"omitempty,file"`
}

// FormConfig holds registration rules that operators may tune.
type FormConfig struct {
	MinAge int    `mapstructure:"min_age" validate:"gte=0,lte=150"`
	Input  string `mapstructure:"input" validate:"oneof=lines prompt"`
}

var defaults = map[string]any{
	"lookup.base_url":          "https://viacep.com.br",
	"lookup.timeout":           5 * time.Second,
	"lookup.breaker_threshold": 5,
	"lookup.breaker_cooldown":  30 * time.Second,
	"cache.backend":            CacheMemory,
	"cache.ttl":                24 * time.Hour,
	"redis.url":                "",
	"redis.pool_size":          10,
	"redis.min_idle_conns":     2,
	"redis.dial_timeout":       5 * time.Second,
	"redis.read_timeout":       3 * time.Second,
	"redis.write_timeout":      3 * time.Second,
	"postgres.dsn":             "",
	"postgres.max_open_conns":  5,
	"postgres.max_idle_conns":  2,
	"server.addr":              ":9090",
	"log.level":                "info",
	"log.format":               "json",
	"log.file":                 "",
	"log.max_size_mb":          50,
	"log.max_backups":          3,
	"log.max_age_days":         14,
	"messages.catalog":         "",
	"form.min_age":             18,
	"form.input":               "lines",
}

// Load reads configuration from defaults, an optional file and the
// environment, in increasing precedence, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidConfig, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidConfig, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and backend-specific requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return dErrors.Wrap(err, dErrors.CodeInvalidConfig, "invalid "+verrs[0].Namespace())
		}
		return dErrors.Wrap(err, dErrors.CodeInvalidConfig, "invalid config")
	}
	switch c.Cache.Backend {
	case CacheRedis:
		if c.Redis.URL == "" {
			return dErrors.New(dErrors.CodeInvalidConfig, "redis.url is required for the redis cache")
		}
	case CachePostgres:
		if c.Postgres.DSN == "" {
			return dErrors.New(dErrors.CodeInvalidConfig, "postgres.dsn is required for the postgres cache")
		}
	}
	return nil
}
