// Package config defines the engine's configuration. Config is loaded
// from a YAML file (default configs/config.yaml) with overrides from
// ENGINE_* environment variables, in the same viper-based shape used by
// the rest of this corpus.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration, mapping directly to the YAML
// file structure.
type Config struct {
	Persistence PersistenceConfig `mapstructure:"persistence"`
	REST        RESTConfig        `mapstructure:"rest"`
	WSFeed      WSFeedConfig      `mapstructure:"ws_feed"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// PersistenceConfig controls the SQLite trade log and candle aggregator.
type PersistenceConfig struct {
	Enabled          bool            `mapstructure:"enabled"`
	DBPath           string          `mapstructure:"db_path"`
	CandleTimeframes []time.Duration `mapstructure:"candle_timeframes"`
}

// RESTConfig controls the REST ingress listener.
type RESTConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// WSFeedConfig controls the market-data WebSocket server.
type WSFeedConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// PipelineConfig holds the SubmissionPipeline's queue-depth setting. It is
// loaded and validated only: pipeline.New does not take it and always uses
// its own fixed queue depth.
type PipelineConfig struct {
	TaskQueueDepth int `mapstructure:"task_queue_depth"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file at path, with ENGINE_* environment
// variables overriding any field (dots become underscores, e.g.
// ENGINE_REST_LISTEN_ADDR overrides rest.listen_addr).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("persistence.enabled", true)
	v.SetDefault("persistence.db_path", "engine.db")
	v.SetDefault("persistence.candle_timeframes", []string{"1m", "5m", "1h"})
	v.SetDefault("rest.listen_addr", ":8080")
	v.SetDefault("ws_feed.enabled", true)
	v.SetDefault("ws_feed.listen_addr", ":8081")
	v.SetDefault("pipeline.task_queue_depth", 4096)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.REST.ListenAddr == "" {
		return fmt.Errorf("rest.listen_addr is required")
	}
	if c.WSFeed.Enabled && c.WSFeed.ListenAddr == "" {
		return fmt.Errorf("ws_feed.listen_addr is required when ws_feed.enabled is true")
	}
	if c.Persistence.Enabled && c.Persistence.DBPath == "" {
		return fmt.Errorf("persistence.db_path is required when persistence.enabled is true")
	}
	if c.Pipeline.TaskQueueDepth <= 0 {
		return fmt.Errorf("pipeline.task_queue_depth must be > 0")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	return nil
}
