// Package config loads run configuration and bootstraps logging.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rayparkerhenry/intertalent/internal/db"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Lookup LookupConfig `yaml:"lookup" mapstructure:"lookup"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres target.
type StoreConfig struct {
	DatabaseURL string    `yaml:"database_url" mapstructure:"database_url"`
	Table       string    `yaml:"table" mapstructure:"table"`
	Pool        db.Config `yaml:"pool" mapstructure:"pool"`
}

// LookupConfig configures the Zippopotam.us lookup service.
type LookupConfig struct {
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Delay       time.Duration `yaml:"delay" mapstructure:"delay"`
	TimeoutSecs int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CacheConfig configures the durable ZIP coordinate cache.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ZIPGEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. database_url defaults empty so the env binding still
	// resolves ZIPGEO_STORE_DATABASE_URL.
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.table", "inter_talent_showcase")
	v.SetDefault("cache.path", "zip_coordinates_cache.json")
	v.SetDefault("lookup.base_url", "https://api.zippopotam.us")
	v.SetDefault("lookup.delay", "100ms")
	v.SetDefault("lookup.timeout_secs", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
