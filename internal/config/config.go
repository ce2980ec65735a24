package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level server configuration.
type Config struct {
	Feed    FeedConfig    `mapstructure:"feed"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FeedConfig configures the cabinet stream connection.
type FeedConfig struct {
	Address     string        `mapstructure:"address"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// ServerConfig configures the stat broadcast endpoint.
type ServerConfig struct {
	Address    string `mapstructure:"address"`
	SendBuffer int    `mapstructure:"send_buffer"`
}

// LoggingConfig selects log level ("debug", "info", "warn", "error")
// and format ("json" or "console").
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EnvPrefix is prepended to environment overrides, e.g. KQSTATS_FEED_ADDRESS.
const EnvPrefix = "KQSTATS"

func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.address", "ws://kq.local:12749")
	v.SetDefault("feed.read_timeout", 30*time.Second)
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.send_buffer", 256)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads configuration from path, applying defaults and environment
// overrides. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Feed.Address == "" {
		errs = append(errs, errors.New("feed.address is required"))
	}
	if c.Feed.ReadTimeout < 0 {
		errs = append(errs, errors.New("feed.read_timeout must not be negative"))
	}
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	if c.Server.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("server.send_buffer must be positive, got %d", c.Server.SendBuffer))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
