// Package config provides YAML-based configuration loading for Sitewalk.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Sitewalk configuration, loaded from config.yaml.
type Config struct {
	DB      DBConfig      `yaml:"db"`
	Session SessionConfig `yaml:"session"`
	Writes  WritesConfig  `yaml:"writes"`
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	GCS     GCSConfig     `yaml:"gcs"`
	Digest  DigestConfig  `yaml:"digest"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// DBConfig holds connection settings for the relational database.
// Driver "mysql" is the production path; "sqlite" serves local single-user
// deployments and tests.
type DBConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Path     string `yaml:"path"` // sqlite file path
}

// SessionConfig controls the conversation session store.
type SessionConfig struct {
	Path       string `yaml:"path"`        // badger directory
	TTLMinutes int    `yaml:"ttl_minutes"` // session lifetime
}

// WritesConfig selects the persistence strategy for condition/finding/media
// writes: "immediate" or "deferred".
type WritesConfig struct {
	Mode string `yaml:"mode"`
}

// SlackConfig holds Slack Socket Mode credentials.
type SlackConfig struct {
	AppToken string `yaml:"app_token"`
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord Gateway credentials.
type DiscordConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// OpenAIConfig holds the LLM gateway settings. The API key is read from the
// OPENAI_API_KEY environment variable when empty.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// GCSConfig holds object-storage settings for media uploads.
type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	CredentialsFile string `yaml:"credentials_file"`
}

// DigestConfig schedules the open-work digest posted to chat.
type DigestConfig struct {
	Cron    string `yaml:"cron"`    // 5-field cron expression; empty disables
	Channel string `yaml:"channel"` // target channel
}

// HTTPConfig configures the service shell.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DB.Driver == "" {
		c.DB.Driver = "mysql"
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.User == "" {
		c.DB.User = "root"
	}
	if c.DB.Database == "" {
		c.DB.Database = "sitewalk"
	}
	if c.Session.Path == "" {
		c.Session.Path = "data/sessions"
	}
	if c.Session.TTLMinutes == 0 {
		c.Session.TTLMinutes = 240
	}
	if c.Writes.Mode == "" {
		c.Writes.Mode = "deferred"
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.DB.Driver {
	case "mysql":
		// host, port and database all have defaults
	case "sqlite":
		if c.DB.Path == "" {
			errs = append(errs, "db.path is required for the sqlite driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("db.driver must be mysql or sqlite, got %q", c.DB.Driver))
	}
	switch c.Writes.Mode {
	case "immediate", "deferred":
	default:
		errs = append(errs, fmt.Sprintf("writes.mode must be immediate or deferred, got %q", c.Writes.Mode))
	}
	if c.Slack.BotToken == "" && c.Discord.BotToken == "" {
		errs = append(errs, "at least one chat platform (slack or discord) must be configured")
	}
	if c.Slack.BotToken != "" && c.Slack.AppToken == "" {
		errs = append(errs, "slack.app_token is required for socket mode")
	}
	if c.Digest.Cron != "" && c.Digest.Channel == "" {
		errs = append(errs, "digest.channel is required when digest.cron is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
