// Package config provides configuration loading and defaults for deskcord.
//
// Configuration is loaded from a TOML file in the user's data directory.
// It covers the Discord connection, presence defaults, window auto-checking,
// the profile card shown by the shell, privacy filters, the local bridge
// server and logging.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/deskcord/internal/atomicfile"
	"tools.zach/dev/deskcord/internal/paths"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Discord holds Discord application settings.
	Discord DiscordConfig `toml:"discord"`
	// Connect holds connection retry settings.
	Connect ConnectConfig `toml:"connect"`
	// Presence holds defaults applied to every presence update.
	Presence PresenceConfig `toml:"presence"`
	// Behavior holds window auto-check settings.
	Behavior BehaviorConfig `toml:"behavior"`
	// Profile holds the profile card shown in the shell.
	Profile ProfileConfig `toml:"profile"`
	// Privacy holds window filtering settings.
	Privacy PrivacyConfig `toml:"privacy"`
	// Server holds the local bridge server settings.
	Server ServerConfig `toml:"server"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// DiscordConfig holds Discord application settings.
type DiscordConfig struct {
	// AppID is the fallback application ID, used when a window's catalog
	// entry has none and by `deskcord presence set`.
	AppID string `toml:"app_id"`
}

// ConnectConfig holds connection retry settings.
type ConnectConfig struct {
	// Attempts is how many times initRpc tries to reach Discord.
	Attempts int `toml:"attempts"`
	// DelayMS is the fixed wait between failed attempts.
	DelayMS int `toml:"delay_ms"`
}

// PresenceConfig holds presence defaults.
type PresenceConfig struct {
	// ActivityType is the verb used when a request names none.
	ActivityType string `toml:"activity_type"`
	// LargeImage is the default large image asset key.
	LargeImage string `toml:"large_image"`
	// SmallImage is the default small image asset key.
	SmallImage string `toml:"small_image"`
	// CoalesceUpdates keeps only the newest of several contended updates.
	CoalesceUpdates bool `toml:"coalesce_updates"`
}

// BehaviorConfig holds window auto-check settings.
type BehaviorConfig struct {
	// AutoCheckIntervalMS is the window list polling period.
	AutoCheckIntervalMS int `toml:"auto_check_interval_ms"`
	// AutoChecking enables polling.
	AutoChecking bool `toml:"auto_checking"`
	// CheckUpdates enables the release check on `deskcord serve`.
	CheckUpdates bool `toml:"check_updates"`
}

// Role is a colored badge on the profile card.
type Role struct {
	ID    string `toml:"id" json:"id"`
	Name  string `toml:"name" json:"name"`
	Color string `toml:"color" json:"color"`
}

// ProfileConfig holds the profile card shown by the shell.
type ProfileConfig struct {
	DisplayName string `toml:"display_name"`
	HandleName  string `toml:"handle_name"`
	Roles       []Role `toml:"roles"`
}

// PrivacyConfig holds window filtering settings.
type PrivacyConfig struct {
	// Ignore is a list of glob patterns matched against document names and
	// window titles. Matching windows are never listed.
	Ignore []string `toml:"ignore"`
}

// ServerConfig holds the local bridge server settings.
type ServerConfig struct {
	// Listen is the loopback address the bridge binds.
	Listen string `toml:"listen"`
	// AllowedOrigins lists webview origins allowed to call the bridge.
	AllowedOrigins []string `toml:"allowed_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultListen is the bridge's default loopback address.
const DefaultListen = "127.0.0.1:47613"

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: schema.Latest,
		Connect: ConnectConfig{
			Attempts: 6,
			DelayMS:  500,
		},
		Presence: PresenceConfig{
			ActivityType: "playing",
			LargeImage:   "appicon",
			SmallImage:   "fileicon",
		},
		Behavior: BehaviorConfig{
			AutoCheckIntervalMS: 5000,
			AutoChecking:        true,
			CheckUpdates:        true,
		},
		Profile: ProfileConfig{
			DisplayName: "Your Name",
			HandleName:  "@username",
			Roles:       []Role{},
		},
		Privacy: PrivacyConfig{
			Ignore: []string{},
		},
		Server: ServerConfig{
			Listen:         DefaultListen,
			AllowedOrigins: []string{"tauri://localhost", "http://tauri.localhost", "http://localhost:1420"},
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ///////////////////////////////////////////////
// Example Configuration
// ///////////////////////////////////////////////

// ExampleConfig returns a Config suitable for generating config.default.toml.
// Roles and ignore globs stay empty so their documented examples render as
// comments instead of active entries.
func ExampleConfig() *Config {
	return DefaultConfig()
}

// ///////////////////////////////////////////////
// Derived Values
// ///////////////////////////////////////////////

// ConnectDelay returns the retry delay as a duration.
func (c *Config) ConnectDelay() time.Duration {
	return time.Duration(c.Connect.DelayMS) * time.Millisecond
}

// AutoCheckInterval returns the polling period as a duration.
func (c *Config) AutoCheckInterval() time.Duration {
	return time.Duration(c.Behavior.AutoCheckIntervalMS) * time.Millisecond
}

// ResolveAppID picks the application for a window: the catalog entry's own
// ID when set, otherwise discord.app_id.
func (c *Config) ResolveAppID(entryAppID string) string {
	if entryAppID != "" {
		return entryAppID
	}
	return c.Discord.AppID
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil || v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads dataDir/config.toml, migrating and re-saving older schemas.
// Without a config.toml it imports the shell's legacy config.json if one
// exists, and otherwise returns DefaultConfig.
func Load(dataDir string) (*Config, error) {
	dd := paths.DataDir{Root: dataDir}
	path := dd.Config()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return importLegacy(dd)
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return decode(data, path, true)
}

// Parse decodes TOML config bytes without touching disk.
func Parse(data []byte) (*Config, error) {
	return decode(data, "", false)
}

func decode(data []byte, path string, persist bool) (*Config, error) {
	version := PeekVersion(data)

	migrated := version != schema.Latest
	if migrated {
		if persist {
			if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
				slog.Warn("failed to write config backup", "error", backupErr)
			}
		}
		doc := map[string]any{}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		if _, err := schema.Upgrade(doc, version); err != nil {
			return nil, err
		}
		var err error
		if data, err = encodeDocument(doc); err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = schema.Latest

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if migrated && persist {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}
	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return atomicfile.Write(path, data, 0o644)
}

// Encode renders the config as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// appIDRe matches a Discord snowflake.
var appIDRe = regexp.MustCompile(`^[0-9]{15,21}$`)

// colorRe matches a #rrggbb role color.
var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Discord.AppID != "" && !appIDRe.MatchString(c.Discord.AppID) {
		return fmt.Errorf("invalid discord.app_id %q: must be a numeric application ID", c.Discord.AppID)
	}

	if c.Connect.Attempts < 1 || c.Connect.Attempts > 50 {
		return fmt.Errorf("connect.attempts must be between 1 and 50, got %d", c.Connect.Attempts)
	}
	if c.Connect.DelayMS < 0 {
		return fmt.Errorf("connect.delay_ms must be >= 0, got %d", c.Connect.DelayMS)
	}

	switch strings.ToLower(c.Presence.ActivityType) {
	case "", "playing", "listening", "watching", "competing":
	default:
		return fmt.Errorf("invalid presence.activity_type %q: must be playing, listening, watching, or competing", c.Presence.ActivityType)
	}

	if c.Behavior.AutoCheckIntervalMS < 250 {
		return fmt.Errorf("behavior.auto_check_interval_ms must be >= 250, got %d", c.Behavior.AutoCheckIntervalMS)
	}

	for i, r := range c.Profile.Roles {
		if r.Name == "" {
			return fmt.Errorf("profile.roles[%d]: name is required", i)
		}
		if r.Color != "" && !colorRe.MatchString(r.Color) {
			return fmt.Errorf("profile.roles[%d]: invalid color %q: must be #rrggbb", i, r.Color)
		}
	}

	for _, pattern := range c.Privacy.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid privacy.ignore pattern %q", pattern)
		}
	}

	if _, _, err := splitHostPort(c.Server.Listen); err != nil {
		return fmt.Errorf("invalid server.listen %q: %w", c.Server.Listen, err)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	return nil
}
