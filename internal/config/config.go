// Package config provides YAML-based configuration loading for Arena.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Arena configuration, loaded from config.yaml.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Server      ServerConfig      `yaml:"server"`
	Matchmaking MatchmakingConfig `yaml:"matchmaking"`
	Quota       QuotaConfig       `yaml:"quota"`
	Sweeper     SweeperConfig     `yaml:"sweeper"`
	Announce    AnnounceConfig    `yaml:"announce"`
}

// DatabaseConfig selects the storage backend: "mysql" for production,
// "sqlite" for local single-node use.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// Path is the SQLite file for the sqlite driver.
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP settings for arena serve.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// MatchmakingConfig holds the pair-selection policy.
type MatchmakingConfig struct {
	MaxEloDifference    float64  `yaml:"max_elo_difference"`
	EligibleAgents      []string `yaml:"eligible_agents"`
	RequiredAgent       string   `yaml:"required_agent"`
	PreferSameFramework *bool    `yaml:"prefer_same_framework"`
}

// QuotaConfig bounds anonymous demo usage.
type QuotaConfig struct {
	MaxQueries int `yaml:"max_queries"`
}

// SweeperConfig schedules the stale-battle sweep.
type SweeperConfig struct {
	// Schedule is a 5-field cron expression.
	Schedule string `yaml:"schedule"`
	// MaxAgeMinutes is how long a battle may stay pending/running.
	MaxAgeMinutes int `yaml:"max_age_minutes"`
}

// AnnounceConfig configures result announcements. A platform with an empty
// token is disabled.
type AnnounceConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack credentials for announcements.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds Discord credentials for announcements.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
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

// Default returns the configuration used when no config file exists:
// a local SQLite database with stock policies.
func Default() *Config {
	cfg := &Config{}
	cfg.Database.Driver = "sqlite"
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Database == "" {
		c.Database.Database = "arena"
	}
	if c.Database.Path == "" {
		c.Database.Path = "arena.db"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Matchmaking.MaxEloDifference == 0 {
		c.Matchmaking.MaxEloDifference = 200
	}
	if len(c.Matchmaking.EligibleAgents) == 0 {
		c.Matchmaking.EligibleAgents = []string{"browser-use", "notte", "skyvern"}
	}
	if c.Matchmaking.PreferSameFramework == nil {
		prefer := true
		c.Matchmaking.PreferSameFramework = &prefer
	}
	if c.Quota.MaxQueries == 0 {
		c.Quota.MaxQueries = 1
	}
	if c.Sweeper.Schedule == "" {
		c.Sweeper.Schedule = "*/5 * * * *"
	}
	if c.Sweeper.MaxAgeMinutes == 0 {
		c.Sweeper.MaxAgeMinutes = 30
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not mysql or sqlite", c.Database.Driver))
	}
	if c.Matchmaking.MaxEloDifference < 0 {
		errs = append(errs, "matchmaking.max_elo_difference must be positive")
	}
	if c.Quota.MaxQueries < 0 {
		errs = append(errs, "quota.max_queries must be positive")
	}
	if c.Announce.Slack.BotToken != "" && c.Announce.Slack.ChannelID == "" {
		errs = append(errs, "announce.slack.channel_id is required with a bot token")
	}
	if c.Announce.Discord.BotToken != "" && c.Announce.Discord.ChannelID == "" {
		errs = append(errs, "announce.discord.channel_id is required with a bot token")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
