// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Log      LogConfig      `mapstructure:"log"`
}

// TelegramConfig holds Telegram bot configuration.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
	Debug  bool   `mapstructure:"debug"`
}

// GitHubConfig holds webhook and API configuration.
type GitHubConfig struct {
	Token         string   `mapstructure:"token"` // optional, for repository enrichment
	WebhookSecret string   `mapstructure:"webhook_secret"`
	Repositories  []string `mapstructure:"repositories"` // owner/name, exact match
}

// DatabaseConfig holds dedup store configuration.
type DatabaseConfig struct {
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// NotifyConfig holds dispatcher tuning.
type NotifyConfig struct {
	BatchSize           int           `mapstructure:"batch_size"`
	SendDelay           time.Duration `mapstructure:"send_delay"`
	QueueSize           int           `mapstructure:"queue_size"`
	MaxAttempts         int           `mapstructure:"max_attempts"`
	SaturationThreshold int           `mapstructure:"saturation_threshold"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Defaults mirror the historical deployment values.
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.path", "./data/issues.db")
	v.SetDefault("database.retention_days", 90)
	v.SetDefault("notify.batch_size", 3)
	v.SetDefault("notify.send_delay", time.Second)
	v.SetDefault("notify.queue_size", 100)
	v.SetDefault("notify.max_attempts", 4)
	v.SetDefault("notify.saturation_threshold", 80)
	v.SetDefault("log.level", "info")
	v.SetDefault("telegram.debug", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ISSUEBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks if all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram chat_id is required")
	}
	if len(c.GitHub.Repositories) == 0 {
		return fmt.Errorf("at least one monitored repository is required")
	}
	for _, repo := range c.GitHub.Repositories {
		if !strings.Contains(repo, "/") {
			return fmt.Errorf("repository %q must be in owner/name form", repo)
		}
	}
	if c.Notify.BatchSize < 1 {
		return fmt.Errorf("notify batch_size must be at least 1")
	}
	if c.Notify.QueueSize < 1 {
		return fmt.Errorf("notify queue_size must be at least 1")
	}
	return nil
}

// ServerAddress returns the full server address.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MonitoredSet returns the repository list as a membership set.
func (c *Config) MonitoredSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.GitHub.Repositories))
	for _, repo := range c.GitHub.Repositories {
		set[repo] = struct{}{}
	}
	return set
}
