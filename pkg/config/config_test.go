package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Twitch.ClientID = "abc123"
	cfg.Twitch.ChannelName = "teststreamer"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.YouTube.PrivacyStatus != "unlisted" {
		t.Errorf("Expected unlisted default privacy, got %s", cfg.YouTube.PrivacyStatus)
	}
	if cfg.YouTube.CategoryID != "20" {
		t.Errorf("Expected gaming category, got %s", cfg.YouTube.CategoryID)
	}
	if cfg.Archive.PollInterval != 30*time.Minute {
		t.Errorf("Expected 30m poll interval, got %s", cfg.Archive.PollInterval)
	}
	if cfg.Archive.VODLimit != 10 {
		t.Errorf("Expected VOD limit 10, got %d", cfg.Archive.VODLimit)
	}
	if !cfg.Archive.DeleteAfterUpload {
		t.Error("Expected delete-after-upload to default on")
	}
	if cfg.Dashboard.Port != 8000 {
		t.Errorf("Expected dashboard port 8000, got %d", cfg.Dashboard.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing client id", func(c *Config) { c.Twitch.ClientID = "" }, true},
		{"missing channel", func(c *Config) { c.Twitch.ChannelName = "" }, true},
		{"bad privacy", func(c *Config) { c.YouTube.PrivacyStatus = "secret" }, true},
		{"empty download dir", func(c *Config) { c.Archive.DownloadDir = "" }, true},
		{"poll interval too short", func(c *Config) { c.Archive.PollInterval = time.Second }, true},
		{"vod limit zero", func(c *Config) { c.Archive.VODLimit = 0 }, true},
		{"vod limit too large", func(c *Config) { c.Archive.VODLimit = 500 }, true},
		{"bad dashboard port", func(c *Config) { c.Dashboard.Port = 99999 }, true},
		{"dashboard disabled ignores port", func(c *Config) {
			c.Dashboard.Enabled = false
			c.Dashboard.Port = 0
		}, false},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected valid config, got %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vodarchiver.yaml")
	content := `
twitch:
  client_id: from_file
  channel_name: filestreamer
archive:
  poll_interval: 15m
  vod_limit: 5
dashboard:
  port: 9000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Twitch.ClientID != "from_file" {
		t.Errorf("Expected client ID from file, got %s", cfg.Twitch.ClientID)
	}
	if cfg.Archive.PollInterval != 15*time.Minute {
		t.Errorf("Expected 15m poll interval, got %s", cfg.Archive.PollInterval)
	}
	if cfg.Archive.VODLimit != 5 {
		t.Errorf("Expected VOD limit 5, got %d", cfg.Archive.VODLimit)
	}
	if cfg.Dashboard.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.Dashboard.Port)
	}
	// Untouched sections keep their defaults.
	if cfg.YouTube.PrivacyStatus != "unlisted" {
		t.Errorf("Expected default privacy to survive partial file, got %s", cfg.YouTube.PrivacyStatus)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VODARCHIVER_TWITCH_CLIENT_ID", "from_env")
	t.Setenv("VODARCHIVER_CHANNEL", "envstreamer")
	t.Setenv("VODARCHIVER_POLL_INTERVAL", "45m")
	t.Setenv("VODARCHIVER_DASHBOARD_PORT", "8081")

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load env: %v", err)
	}

	if cfg.Twitch.ClientID != "from_env" {
		t.Errorf("Expected client ID from env, got %s", cfg.Twitch.ClientID)
	}
	if cfg.Twitch.ChannelName != "envstreamer" {
		t.Errorf("Expected channel from env, got %s", cfg.Twitch.ChannelName)
	}
	if cfg.Archive.PollInterval != 45*time.Minute {
		t.Errorf("Expected 45m poll interval, got %s", cfg.Archive.PollInterval)
	}
	if cfg.Dashboard.Port != 8081 {
		t.Errorf("Expected port 8081, got %d", cfg.Dashboard.Port)
	}
}

func TestLoadFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("VODARCHIVER_POLL_INTERVAL", "soon")

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("Expected error for unparseable poll interval")
	}
}

func TestFlagsOverrideEnvAndFile(t *testing.T) {
	t.Setenv("VODARCHIVER_CHANNEL", "envstreamer")
	t.Setenv("VODARCHIVER_TWITCH_CLIENT_ID", "abc123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("twitch:\n  channel_name: filestreamer\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path, map[string]interface{}{
		"channel":       "flagstreamer",
		"poll-interval": 10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	if cfg.Twitch.ChannelName != "flagstreamer" {
		t.Errorf("Expected flag to win, got %s", cfg.Twitch.ChannelName)
	}
	if cfg.Archive.PollInterval != 10*time.Minute {
		t.Errorf("Expected flag poll interval, got %s", cfg.Archive.PollInterval)
	}
}
