package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the archiver.
type Config struct {
	Twitch    TwitchConfig    `yaml:"twitch" json:"twitch"`
	YouTube   YouTubeConfig   `yaml:"youtube" json:"youtube"`
	Archive   ArchiveConfig   `yaml:"archive" json:"archive"`
	Dashboard DashboardConfig `yaml:"dashboard" json:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// TwitchConfig identifies the source channel and API credentials.
type TwitchConfig struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	ChannelName  string `yaml:"channel_name" json:"channel_name"`
}

// YouTubeConfig holds the publish collaborator's settings.
type YouTubeConfig struct {
	ClientSecretsFile string `yaml:"client_secrets_file" json:"client_secrets_file"`
	TokenFile         string `yaml:"token_file" json:"token_file"`
	PrivacyStatus     string `yaml:"privacy_status" json:"privacy_status"`
	PlaylistName      string `yaml:"playlist_name" json:"playlist_name"`
	CategoryID        string `yaml:"category_id" json:"category_id"`
}

// ArchiveConfig controls the poll loop and local storage.
type ArchiveConfig struct {
	DownloadDir       string        `yaml:"download_dir" json:"download_dir"`
	ProcessedFile     string        `yaml:"processed_file" json:"processed_file"`
	PollInterval      time.Duration `yaml:"poll_interval" json:"poll_interval"`
	VODLimit          int           `yaml:"vod_limit" json:"vod_limit"`
	DeleteAfterUpload bool          `yaml:"delete_after_upload" json:"delete_after_upload"`
	MinFreeGB         float64       `yaml:"min_free_gb" json:"min_free_gb"`
}

// DashboardConfig controls the read-only status endpoint.
type DashboardConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Port    int  `yaml:"port" json:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		YouTube: YouTubeConfig{
			ClientSecretsFile: "client_secrets.json",
			TokenFile:         "youtube_token.json",
			PrivacyStatus:     "unlisted",
			CategoryID:        "20", // Gaming
		},
		Archive: ArchiveConfig{
			DownloadDir:       "./downloads",
			ProcessedFile:     "processed_vods.json",
			PollInterval:      30 * time.Minute,
			VODLimit:          10,
			DeleteAfterUpload: true,
			MinFreeGB:         5.0,
		},
		Dashboard: DashboardConfig{
			Enabled: true,
			Port:    8000,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "vodarchiver.log",
		},
	}
}

// LoadFromEnv overrides config values from environment variables.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("VODARCHIVER_TWITCH_CLIENT_ID"); v != "" {
		c.Twitch.ClientID = v
	}
	if v := os.Getenv("VODARCHIVER_TWITCH_CLIENT_SECRET"); v != "" {
		c.Twitch.ClientSecret = v
	}
	if v := os.Getenv("VODARCHIVER_CHANNEL"); v != "" {
		c.Twitch.ChannelName = v
	}
	if v := os.Getenv("VODARCHIVER_DOWNLOAD_DIR"); v != "" {
		c.Archive.DownloadDir = v
	}
	if v := os.Getenv("VODARCHIVER_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid VODARCHIVER_POLL_INTERVAL: %w", err)
		}
		c.Archive.PollInterval = d
	}
	if v := os.Getenv("VODARCHIVER_DASHBOARD_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid VODARCHIVER_DASHBOARD_PORT: %w", err)
		}
		c.Dashboard.Port = port
	}
	if v := os.Getenv("VODARCHIVER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file. An empty path falls
// back to the standard locations; a missing default file is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (c *Config) findConfigFile() string {
	locations := []string{
		"vodarchiver.yaml",
		"vodarchiver.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "vodarchiver", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".vodarchiver.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks that the configuration is usable. Failures here are fatal
// at startup, never retried.
func (c *Config) Validate() error {
	var errs []error

	if c.Twitch.ClientID == "" {
		errs = append(errs, errors.New("twitch client ID is required"))
	}
	if c.Twitch.ChannelName == "" {
		errs = append(errs, errors.New("twitch channel name is required"))
	}

	validPrivacy := map[string]bool{"public": true, "private": true, "unlisted": true}
	if !validPrivacy[strings.ToLower(c.YouTube.PrivacyStatus)] {
		errs = append(errs, errors.New("privacy status must be public, private, or unlisted"))
	}

	if c.Archive.DownloadDir == "" {
		errs = append(errs, errors.New("download directory is required"))
	}
	if c.Archive.ProcessedFile == "" {
		errs = append(errs, errors.New("processed file path is required"))
	}
	if c.Archive.PollInterval < time.Minute {
		errs = append(errs, errors.New("poll interval must be at least one minute"))
	}
	if c.Archive.VODLimit <= 0 || c.Archive.VODLimit > 100 {
		errs = append(errs, errors.New("vod limit must be between 1 and 100"))
	}
	if c.Archive.MinFreeGB < 0 {
		errs = append(errs, errors.New("min free space cannot be negative"))
	}

	if c.Dashboard.Enabled && (c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535) {
		errs = append(errs, errors.New("dashboard port must be a valid TCP port"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MergeCommandLineFlags merges values set via CLI flags into the config.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if channel, ok := flags["channel"].(string); ok && channel != "" {
		c.Twitch.ChannelName = channel
	}
	if dir, ok := flags["download-dir"].(string); ok && dir != "" {
		c.Archive.DownloadDir = dir
	}
	if interval, ok := flags["poll-interval"].(time.Duration); ok && interval > 0 {
		c.Archive.PollInterval = interval
	}
	if port, ok := flags["dashboard-port"].(int); ok && port > 0 {
		c.Dashboard.Port = port
	}
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
	if del, ok := flags["delete-after-upload"].(bool); ok {
		c.Archive.DeleteAfterUpload = del
	}
}

// Load loads configuration from all sources.
// Precedence: command line flags > environment variables > .env file >
// config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".vodarchiver.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
