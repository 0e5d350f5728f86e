package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnalysisConfig configures scoring runs.
type AnalysisConfig struct {
	BufferMeters   float64 `yaml:"buffer_meters" mapstructure:"buffer_meters"`
	CircleSegments int     `yaml:"circle_segments" mapstructure:"circle_segments"`
	PresenceValue  float64 `yaml:"presence_value" mapstructure:"presence_value"`
	Concurrency    int     `yaml:"concurrency" mapstructure:"concurrency"`
	GapMaps        bool    `yaml:"gap_maps" mapstructure:"gap_maps"`
}

// FetchConfig configures remote dataset downloads.
type FetchConfig struct {
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// ServerConfig configures the HTTP results server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("GAPANALYSIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "gapanalysis.db")
	v.SetDefault("analysis.buffer_meters", 50000)
	v.SetDefault("analysis.circle_segments", 64)
	v.SetDefault("analysis.presence_value", 1)
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("fetch.temp_dir", "/tmp/gapanalysis")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("server.port", 8080)
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

// Validate checks the fields a given mode depends on. Modes are "analysis"
// for the grs and combine commands, "serve" for the HTTP server, and "fetch"
// for dataset downloads.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(cond bool, msg string) {
		if !cond {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "analysis":
		check(c.Analysis.BufferMeters > 0, "analysis.buffer_meters must be > 0")
		check(c.Analysis.CircleSegments >= 8, "analysis.circle_segments must be >= 8")
		check(c.Analysis.Concurrency >= 1 && c.Analysis.Concurrency <= 64,
			"analysis.concurrency must be between 1 and 64")
		check(c.Store.DatabaseURL != "", "store.database_url is required")
	case "serve":
		check(c.Server.Port > 0, "server.port must be > 0")
		check(c.Store.DatabaseURL != "", "store.database_url is required")
	case "fetch":
		check(c.Fetch.TempDir != "", "fetch.temp_dir is required")
		check(c.Fetch.TimeoutSecs > 0, "fetch.timeout_secs must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
