// Package config provides configuration management for the Jean backend.
// It supports loading configuration from environment variables, config files, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration sections for the Jean backend.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`  // in seconds
	WriteTimeout int    `mapstructure:"writeTimeout"` // in seconds
}

// NATSConfig holds NATS messaging configuration.
// An empty URL means the in-memory event bus is used instead.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	ClientID      string `mapstructure:"clientId"`
	MaxReconnects int    `mapstructure:"maxReconnects"`
}

// ChatConfig holds the runtime policy for detached CLI runs.
// The three *MS knobs are heuristics, not guarantees: the grace period in
// particular only bounds how long we wait for buffered output to flush after
// a process dies, and slow vendor CLIs may need it raised.
type ChatConfig struct {
	// RunDir is where per-session NDJSON output files are written.
	RunDir string `mapstructure:"runDir"`

	// PollIntervalMS is the sleep between tail polls.
	PollIntervalMS int `mapstructure:"pollIntervalMS"`

	// StartupTimeoutMS bounds how long a run may produce no output at all
	// before it is abandoned (covers cold-start/model-loading latency).
	StartupTimeoutMS int `mapstructure:"startupTimeoutMS"`

	// DeadProcessGracePeriodMS is how long to keep polling after the
	// process is observed dead, so late-flushed records are drained.
	DeadProcessGracePeriodMS int `mapstructure:"deadProcessGracePeriodMS"`

	// Binaries maps a vendor id (claude, codex, gemini, kimi) to an
	// explicit CLI binary path, overriding discovery.
	Binaries map[string]string `mapstructure:"binaries"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// ReadTimeoutDuration returns the read timeout as a time.Duration.
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout as a time.Duration.
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// PollInterval returns the tail poll interval as a time.Duration.
func (c *ChatConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// StartupTimeout returns the no-output startup timeout as a time.Duration.
func (c *ChatConfig) StartupTimeout() time.Duration {
	return time.Duration(c.StartupTimeoutMS) * time.Millisecond
}

// DeadProcessGracePeriod returns the post-death drain window as a time.Duration.
func (c *ChatConfig) DeadProcessGracePeriod() time.Duration {
	return time.Duration(c.DeadProcessGracePeriodMS) * time.Millisecond
}

// detectDefaultLogFormat returns the appropriate log format based on environment.
func detectDefaultLogFormat() string {
	if env := os.Getenv("JEAN_ENV"); env == "production" || env == "prod" {
		return "json"
	}
	return "text"
}

func defaultRunDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jean/runs"
	}
	return filepath.Join(home, ".jean", "runs")
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8719)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// NATS defaults - empty URL means use in-memory event bus
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clientId", "jean-backend")
	v.SetDefault("nats.maxReconnects", 10)

	// Chat run loop defaults
	v.SetDefault("chat.runDir", defaultRunDir())
	v.SetDefault("chat.pollIntervalMS", 50)
	v.SetDefault("chat.startupTimeoutMS", 120000)
	v.SetDefault("chat.deadProcessGracePeriodMS", 2000)
	v.SetDefault("chat.binaries", map[string]string{})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stdout")
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix JEAN_ with snake_case naming.
// Config file should be named config.yaml and placed in the current directory
// or ~/.jean/.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults first
	setDefaults(v)

	// Configure environment variables
	v.SetEnvPrefix("JEAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit bindings for keys whose camelCase config names don't map
	// cleanly through AutomaticEnv.
	_ = v.BindEnv("chat.runDir", "JEAN_CHAT_RUN_DIR")
	_ = v.BindEnv("chat.pollIntervalMS", "JEAN_CHAT_POLL_INTERVAL_MS")
	_ = v.BindEnv("chat.startupTimeoutMS", "JEAN_CHAT_STARTUP_TIMEOUT_MS")
	_ = v.BindEnv("chat.deadProcessGracePeriodMS", "JEAN_CHAT_DEAD_PROCESS_GRACE_PERIOD_MS")

	// Configure config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".jean"))
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks that all required configuration fields are set.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if cfg.Chat.RunDir == "" {
		errs = append(errs, "chat.runDir must be set")
	}
	if cfg.Chat.PollIntervalMS <= 0 {
		errs = append(errs, "chat.pollIntervalMS must be positive")
	}
	if cfg.Chat.StartupTimeoutMS <= 0 {
		errs = append(errs, "chat.startupTimeoutMS must be positive")
	}
	if cfg.Chat.DeadProcessGracePeriodMS <= 0 {
		errs = append(errs, "chat.deadProcessGracePeriodMS must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}
