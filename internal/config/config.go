package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Variant values select how code inputs are presented.
const (
	VariantLabeled = "labeled"
	VariantNumeric = "numeric"
)

// Session driver values.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the full application configuration.
type Config struct {
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
	Model   ModelConfig   `yaml:"model" mapstructure:"model"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Map     MapConfig     `yaml:"map" mapstructure:"map"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DatasetConfig locates the historical incident CSV.
type DatasetConfig struct {
	Source      string `yaml:"source" mapstructure:"source"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ModelConfig configures the external model server.
type ModelConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SessionConfig configures where per-session results live.
type SessionConfig struct {
	Driver            string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL       string `yaml:"database_url" mapstructure:"database_url"`
	TTLMins           int    `yaml:"ttl_mins" mapstructure:"ttl_mins"`
	PruneIntervalSecs int    `yaml:"prune_interval_secs" mapstructure:"prune_interval_secs"`
}

// ServerConfig configures the web server.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	Variant         string   `yaml:"variant" mapstructure:"variant"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min" mapstructure:"rate_limit_per_min"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MapConfig configures the rendered map.
type MapConfig struct {
	Zoom    int    `yaml:"zoom" mapstructure:"zoom"`
	TileURL string `yaml:"tile_url" mapstructure:"tile_url"`
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
	v.SetEnvPrefix("CRIME_MAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dataset.source", "data_after_2023.csv")
	v.SetDefault("dataset.timeout_secs", 60)
	v.SetDefault("model.base_url", "http://localhost:8000")
	v.SetDefault("model.timeout_secs", 10)
	v.SetDefault("model.max_attempts", 3)
	v.SetDefault("model.initial_backoff_ms", 200)
	v.SetDefault("model.failure_threshold", 5)
	v.SetDefault("model.reset_timeout_secs", 30)
	v.SetDefault("model.rate_limit", 20.0)
	v.SetDefault("session.driver", DriverMemory)
	v.SetDefault("session.database_url", "file::memory:?cache=shared")
	v.SetDefault("session.ttl_mins", 120)
	v.SetDefault("session.prune_interval_secs", 300)
	v.SetDefault("server.port", 8501)
	v.SetDefault("server.variant", VariantLabeled)
	v.SetDefault("server.rate_limit_per_min", 120)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("map.zoom", 12)
	v.SetDefault("map.tile_url", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png")
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerations and numeric ranges.
func (c *Config) Validate() error {
	if c.Dataset.Source == "" {
		return eris.New("config: dataset.source is required")
	}
	if c.Model.BaseURL == "" {
		return eris.New("config: model.base_url is required")
	}
	if c.Model.TimeoutSecs < 1 {
		return eris.New("config: model.timeout_secs must be at least 1")
	}
	if c.Model.MaxAttempts < 1 {
		return eris.New("config: model.max_attempts must be at least 1")
	}
	if c.Model.RateLimit <= 0 {
		return eris.New("config: model.rate_limit must be positive")
	}

	switch c.Session.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return eris.Errorf("config: session.driver must be one of memory, sqlite, postgres (got %q)", c.Session.Driver)
	}
	if c.Session.Driver != DriverMemory && c.Session.DatabaseURL == "" {
		return eris.Errorf("config: session.database_url is required for driver %s", c.Session.Driver)
	}
	if c.Session.TTLMins < 1 {
		return eris.New("config: session.ttl_mins must be at least 1")
	}
	if c.Session.PruneIntervalSecs < 1 {
		return eris.New("config: session.prune_interval_secs must be at least 1")
	}

	switch c.Server.Variant {
	case VariantLabeled, VariantNumeric:
	default:
		return eris.Errorf("config: server.variant must be labeled or numeric (got %q)", c.Server.Variant)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: server.port out of range: %d", c.Server.Port)
	}

	if c.Map.Zoom < 0 || c.Map.Zoom > 19 {
		return eris.Errorf("config: map.zoom must be between 0 and 19 (got %d)", c.Map.Zoom)
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
